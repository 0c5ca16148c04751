// Package testutil provides helpers shared by package tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"
)

// LineStep is a raw write to emit, optionally after a delay
type LineStep struct {
	Delay time.Duration
	Data  string
}

// StreamHandler returns a handler that writes each step and flushes it
func StreamHandler(status int, steps []LineStep) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		flusher, _ := w.(http.Flusher)
		for _, step := range steps {
			if step.Delay > 0 {
				time.Sleep(step.Delay)
			}
			_, _ = w.Write([]byte(step.Data))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// NewStreamServer returns an httptest server that streams steps on every request
func NewStreamServer(status int, steps []LineStep) *httptest.Server {
	return httptest.NewServer(StreamHandler(status, steps))
}

// ChunkedReader returns its chunks one Read at a time and counts the reads
type ChunkedReader struct {
	Chunks [][]byte
	Reads  int
	Err    error
}

func NewChunkedReader(chunks ...string) *ChunkedReader {
	r := &ChunkedReader{}
	for _, c := range chunks {
		r.Chunks = append(r.Chunks, []byte(c))
	}
	return r
}

func (r *ChunkedReader) Read(p []byte) (int, error) {
	if len(r.Chunks) == 0 {
		if r.Err != nil {
			return 0, r.Err
		}
		return 0, io.EOF
	}
	r.Reads++
	chunk := r.Chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.Chunks[0] = chunk[n:]
	} else {
		r.Chunks = r.Chunks[1:]
	}
	return n, nil
}
