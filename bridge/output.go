package bridge

import (
	"fmt"
	"io"
)

const (
	// Delimiter ends every response block.
	Delimiter byte = 0x0C

	lineEnd = "\r\n"
)

// Output formats response text onto a writer. The first write error is kept
// and every later write is dropped.
type Output struct {
	w   io.Writer
	err error
}

func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

func (o *Output) write(p []byte) {
	if o == nil || o.w == nil || o.err != nil {
		return
	}
	_, o.err = o.w.Write(p)
}

func (o *Output) Line(format string, params ...interface{}) {
	o.write([]byte(fmt.Sprintf(format, params...) + lineEnd))
}

func (o *Output) Delimiter() {
	o.write([]byte{Delimiter})
}

func (o *Output) Err() error {
	if o == nil {
		return nil
	}
	return o.err
}
