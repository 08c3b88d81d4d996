package shell

import (
	"bytes"
	"strings"
)

// lineWriter buffers writes and emits one call per complete line.
type lineWriter struct {
	emit func(string)
	buf  []byte
}

func (w *lineWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.emitLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

// Close emits any trailing partial line.
func (w *lineWriter) Close() error {
	if len(w.buf) > 0 {
		w.emitLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *lineWriter) emitLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	// A carriage return redraws the line; keep what a terminal would show.
	if i := strings.LastIndexByte(msg, '\r'); i >= 0 {
		msg = msg[i+1:]
	}
	w.emit(msg)
}
