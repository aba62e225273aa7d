package lp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ritzau/topobench/pkg/model"
)

// lpWriter keeps the first write error and turns later writes into no-ops
type lpWriter struct {
	w   *bufio.Writer
	err error
}

func newLPWriter(w io.Writer) *lpWriter {
	return &lpWriter{w: bufio.NewWriter(w)}
}

func (lw *lpWriter) print(s string) {
	if lw.err != nil {
		return
	}
	_, lw.err = lw.w.WriteString(s)
}

func (lw *lpWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

func (lw *lpWriter) flush(what string) error {
	if lw.err == nil {
		lw.err = lw.w.Flush()
	}
	if lw.err != nil {
		return fmt.Errorf("write %s: %v: %w", what, lw.err, model.ErrIO)
	}
	return nil
}
