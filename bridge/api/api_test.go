package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/bridge"
)

type fakeExecutor struct {
	mu    sync.Mutex
	state bridge.State
	lines []string
	reply string
	err   error
	wait  bool
}

func (f *fakeExecutor) Do(ctx context.Context, line string) (string, error) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()

	if f.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeExecutor) State() bridge.State {
	return f.state
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

var testInfo = admx.ChipInfo{FirmwareMajor: 1, FirmwareMinor: 4, FirmwarePatch: 2, BoardIDHigh: 0xAB, BoardIDLow: 0xCD}

func newTestAPI(t *testing.T, exec Executor) *httptest.Server {
	t.Helper()

	a, err := New(testInfo, exec, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return srv
}

func TestInfo(t *testing.T) {
	srv := newTestAPI(t, &fakeExecutor{})

	resp, err := http.Get(srv.URL + "/info")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	defer resp.Body.Close()

	var info InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if info.Firmware != "1.4.2" || info.BoardID != "000000AB000000CD" || info.Info != testInfo {
		t.Fatalf("unexpected %+v", info)
	}

	resp, err = http.Post(srv.URL+"/info", ctText, nil)
	if err != nil {
		t.Fatalf("Post err=%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestAPI(t, &fakeExecutor{state: bridge.Calibrating})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if status.State != "calibrating" || !status.Busy {
		t.Fatalf("unexpected %+v", status)
	}
}

func post(t *testing.T, url string, body string) (int, string) {
	t.Helper()

	resp, err := http.Post(url, ctText, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Post err=%v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll err=%v", err)
	}
	return resp.StatusCode, string(data)
}

func TestCommand(t *testing.T) {
	exec := &fakeExecutor{reply: "frequency = 1.0000kHz\r\n\x0c"}
	srv := newTestAPI(t, exec)

	code, body := post(t, srv.URL+"/command", "frequency\r\n")
	if code != http.StatusOK || body != exec.reply {
		t.Fatalf("code %d body %q", code, body)
	}
	if lines := exec.executed(); len(lines) != 1 || lines[0] != "frequency" {
		t.Fatalf("executed %q", lines)
	}

	for _, bad := range []string{"", "  ", "a\nb", strings.Repeat("x", bridge.MaxLineLen+1)} {
		if code, _ := post(t, srv.URL+"/command", bad); code == http.StatusOK {
			t.Fatalf("%q accepted", bad)
		}
	}
	if lines := exec.executed(); len(lines) != 1 {
		t.Fatalf("rejected input reached the bridge: %q", lines)
	}
}

func TestCommandBusy(t *testing.T) {
	srv := newTestAPI(t, &fakeExecutor{err: bridge.ErrBusy})

	if code, _ := post(t, srv.URL+"/command", "z"); code != http.StatusConflict {
		t.Fatalf("code %d", code)
	}
}

func TestCommandTimeout(t *testing.T) {
	srv := newTestAPI(t, &fakeExecutor{wait: true})

	if code, _ := post(t, srv.URL+"/command", "z"); code != http.StatusGatewayTimeout {
		t.Fatalf("code %d", code)
	}
}
