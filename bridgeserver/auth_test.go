package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/bridge"
	"github.com/BertoldVdb/ADMXBridge/bridge/api"
)

type idleExecutor struct{}

func (idleExecutor) Do(ctx context.Context, line string) (string, error) {
	return "\x0c", nil
}

func (idleExecutor) State() bridge.State {
	return bridge.Idle
}

func newTestServer(t *testing.T, authKey string) *httptest.Server {
	t.Helper()

	a, err := api.New(admx.ChipInfo{FirmwareMajor: 1}, idleExecutor{}, time.Second)
	if err != nil {
		t.Fatalf("api.New err=%v", err)
	}

	srv := httptest.NewServer(newHandler(a, authKey, t.Logf))
	t.Cleanup(srv.Close)
	return srv
}

func getInfo(t *testing.T, url string, user string, pass string) int {
	t.Helper()

	rq, err := http.NewRequest("GET", url+"/info", nil)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" || pass != "" {
		rq.SetBasicAuth(user, pass)
	}

	resp, err := http.DefaultClient.Do(rq)
	if err != nil {
		t.Fatalf("GET err=%v", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") != "Basic" {
		t.Fatalf("401 without challenge")
	}
	return resp.StatusCode
}

func TestAuth(t *testing.T) {
	const key = "bench-key"
	srv := newTestServer(t, key)

	user, pass := authCalculate(key, "lab", time.Now().Add(time.Hour))
	if code := getInfo(t, srv.URL, user, pass); code != http.StatusOK {
		t.Fatalf("valid credentials: status %d", code)
	}

	expUser, expPass := authCalculate(key, "", time.Now().Add(-time.Minute))
	otherUser, otherPass := authCalculate("other-key", "lab", time.Now().Add(time.Hour))

	for _, m := range []struct {
		name, user, pass string
	}{
		{"none", "", ""},
		{"wrong password", user, otherPass},
		{"wrong key", otherUser, otherPass},
		{"not hex", user, "zz" + pass[2:]},
		{"expired", expUser, expPass},
	} {
		if code := getInfo(t, srv.URL, m.user, m.pass); code != http.StatusUnauthorized {
			t.Fatalf("%s: status %d", m.name, code)
		}
	}
}

func TestAuthDisabled(t *testing.T) {
	srv := newTestServer(t, "")

	if code := getInfo(t, srv.URL, "", ""); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
}

func TestAuthCalculate(t *testing.T) {
	expiry := time.Unix(1700000000, 0)

	user, pass := authCalculate("k", "example", expiry)
	if user != "1700000000$example" {
		t.Fatalf("user %q", user)
	}
	if len(pass) != 64 {
		t.Fatalf("password %q", pass)
	}

	if !authValid("k", user, pass, expiry) {
		t.Fatalf("rejected at expiry")
	}
	if authValid("k", user, pass, expiry.Add(time.Second)) {
		t.Fatalf("accepted after expiry")
	}
}
