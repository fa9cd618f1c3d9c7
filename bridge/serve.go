package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

// ResetByte on the serial channel resets the bridge.
const ResetByte byte = 0xB0

var ErrBusy = errors.New("a task is running")

type inputEvent struct {
	line  string
	reset bool
}

// lineSplitter assembles command lines from raw bytes. Lines end on CR or LF,
// bytes beyond MaxLineLen are dropped until the end of the line.
type lineSplitter struct {
	buf []byte
}

func (l *lineSplitter) push(c byte) (inputEvent, bool) {
	switch c {
	case ResetByte:
		l.buf = l.buf[:0]
		return inputEvent{reset: true}, true

	case '\r', '\n':
		if len(l.buf) == 0 {
			return inputEvent{}, false
		}
		line := string(l.buf)
		l.buf = l.buf[:0]
		return inputEvent{line: line}, true
	}

	if len(l.buf) < MaxLineLen {
		l.buf = append(l.buf, c)
	}
	return inputEvent{}, false
}

type request struct {
	line string
	out  *Output
	done chan struct{}
	busy bool
}

// Server owns a Bridge and feeds it from the serial channel, from Do calls and
// from the task clock, all on the goroutine running Run.
type Server struct {
	bridge *Bridge
	port   io.ReadWriter

	serialOut *Output
	requests  chan *request
	tick      time.Duration
	start     time.Time

	state atomic.Int32

	logFunc admx.LogFunc
}

// NewServer creates a server for b. port may be nil when commands only arrive
// through Do.
func NewServer(b *Bridge, port io.ReadWriter, tick time.Duration, logFunc admx.LogFunc) *Server {
	if tick <= 0 {
		tick = time.Millisecond
	}

	s := &Server{
		bridge:   b,
		port:     port,
		requests: make(chan *request),
		tick:     tick,
		start:    time.Now(),
		logFunc:  logFunc,
	}

	if port != nil {
		s.serialOut = NewOutput(port)
	}

	return s
}

func (s *Server) log(format string, params ...interface{}) {
	if s.logFunc != nil {
		s.logFunc(format, params...)
	}
}

func (s *Server) now() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// State returns the task state as of the last loop iteration.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) readLoop(ctx context.Context, events chan<- inputEvent) {
	defer close(events)

	var splitter lineSplitter
	buf := make([]byte, 64)

	for ctx.Err() == nil {
		n, err := s.port.Read(buf)
		for _, c := range buf[:n] {
			if ev, ok := splitter.push(c); ok {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log("Serial read failed: %v", err)
			}
			return
		}
	}
}

func isAbort(line string) bool {
	return Tokenize(line)[0] == "abort"
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var events chan inputEvent
	if s.port != nil {
		events = make(chan inputEvent, 16)
		go s.readLoop(ctx, events)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var pending *request

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				close(pending.done)
			}
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				break
			}

			if ev.reset {
				s.log("Bridge reset requested")
				s.bridge.Reset()
			} else if pending != nil && !isAbort(ev.line) {
				// The running task belongs to a Do caller.
				s.serialOut.Line("Error : Task running, command refused!")
				s.serialOut.Delimiter()
			} else {
				s.bridge.Execute(ev.line, s.serialOut)
			}

			if err := s.serialOut.Err(); err != nil {
				s.log("Serial write failed: %v", err)
				s.serialOut = NewOutput(s.port)
			}

		case req := <-s.requests:
			abort := isAbort(req.line)
			if s.bridge.State() != Idle && !abort {
				req.busy = true
				close(req.done)
				break
			}

			s.bridge.Execute(req.line, req.out)
			if abort {
				close(req.done)
			} else if pending == nil {
				pending = req
			} else {
				close(req.done)
			}

		case <-ticker.C:
			s.bridge.Poll(s.now())
		}

		s.state.Store(int32(s.bridge.State()))
		if pending != nil && s.bridge.State() == Idle {
			close(pending.done)
			pending = nil
		}
	}
}

// Do executes one command line and returns its response once the command and
// any task it started are complete. Only abort is accepted while a task runs.
func (s *Server) Do(ctx context.Context, line string) (string, error) {
	var buf bytes.Buffer
	req := &request{
		line: line,
		out:  NewOutput(&buf),
		done: make(chan struct{}),
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case <-req.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if req.busy {
		return "", ErrBusy
	}
	return buf.String(), nil
}
