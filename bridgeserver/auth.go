package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BertoldVdb/ADMXBridge/bridge/api"
	"github.com/BertoldVdb/go-misc/httplog"
)

func authSign(authKey string, user string) []byte {
	h := hmac.New(sha256.New, []byte(authKey))
	h.Write([]byte(user))
	return h.Sum(nil)
}

// authCalculate returns a basic auth user and password that stay valid until
// expiry. The user is the expiry time in unix seconds, optionally followed by
// "$" and a free form suffix.
func authCalculate(authKey string, suffix string, expiry time.Time) (string, string) {
	user := strconv.FormatInt(expiry.Unix(), 10)
	if suffix != "" {
		user += "$" + suffix
	}

	return user, hex.EncodeToString(authSign(authKey, user))
}

func authValid(authKey string, user string, pwd string, now time.Time) bool {
	pwdDec, err := hex.DecodeString(pwd)
	if err != nil {
		return false
	}

	if subtle.ConstantTimeCompare(pwdDec, authSign(authKey, user)) != 1 {
		return false
	}

	expiry, err := strconv.ParseInt(strings.SplitN(user, "$", 2)[0], 10, 64)
	return err == nil && now.Unix() <= expiry
}

// authProcess guards handler with basic auth. An empty key disables the check.
func authProcess(handler http.HandlerFunc, authKey string) http.HandlerFunc {
	if len(authKey) == 0 {
		return handler
	}

	return func(rw http.ResponseWriter, rq *http.Request) {
		user, pwd, ok := rq.BasicAuth()
		if !ok || !authValid(authKey, user, pwd, time.Now()) {
			rw.Header().Set("WWW-Authenticate", "Basic")
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}

		handler(rw, rq)
	}
}

func newHandler(a *api.API, authKey string, logFunc httplog.Logger) http.Handler {
	logger := httplog.HTTPLog{
		LogOut:     logFunc,
		ServerName: "ADMXBridge",
	}

	return logger.GetHandler(authProcess(a.ServeHTTP, authKey))
}
