package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/bridge"
)

// Executor runs command lines on a bridge. *bridge.Server implements it.
type Executor interface {
	Do(ctx context.Context, line string) (string, error)
	State() bridge.State
}

type API struct {
	mux     *http.ServeMux
	exec    Executor
	timeout time.Duration
}

const (
	ctText string = "text/plain; charset=us-ascii"
	ctJSON string = "application/json"
)

type InfoResponse struct {
	Type     string
	Firmware string
	BoardID  string
	Info     admx.ChipInfo
}

type StatusResponse struct {
	State string
	Busy  bool
}

func New(info admx.ChipInfo, exec Executor, timeout time.Duration) (*API, error) {
	mux := &http.ServeMux{}

	s := &API{
		mux:     mux,
		exec:    exec,
		timeout: timeout,
	}

	infoJson, err := json.MarshalIndent(&InfoResponse{
		Type:     "ADMX2001",
		Firmware: info.Firmware(),
		BoardID:  info.BoardID(),
		Info:     info,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	mux.HandleFunc("/info", sendStatic(ctJSON, infoJson))
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/command", s.commandHandler)

	return s, nil
}

func sendStatic(contentType string, data []byte) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

func (s *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	state := s.exec.State()
	data, err := json.Marshal(&StatusResponse{
		State: state.String(),
		Busy:  state != bridge.Idle,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ctJSON)
	w.Write(data)
}

func (s *API) commandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	input, err := io.ReadAll(io.LimitReader(r.Body, bridge.MaxLineLen+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(input) > bridge.MaxLineLen {
		http.Error(w, "Command too long", http.StatusRequestEntityTooLarge)
		return
	}

	line := strings.TrimRight(string(input), "\r\n")
	if strings.ContainsAny(line, "\r\n") || strings.TrimSpace(line) == "" {
		http.Error(w, "Expected a single command line", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	output, err := s.exec.Do(ctx, line)
	switch {
	case errors.Is(err, bridge.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Command did not complete in time", http.StatusGatewayTimeout)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", ctText)
	io.WriteString(w, output)
}

func (s *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
