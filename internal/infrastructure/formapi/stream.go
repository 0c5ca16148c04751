package formapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix     = "data: "
	streamReadSize = 4096
)

// ChunkObserver sees content, field and status chunks in arrival order. It is
// never called for error or done chunks.
type ChunkObserver func(chunk StreamingChunk)

// streamState accumulates one streaming exchange. Nothing in it outlives the call.
type streamState struct {
	content    strings.Builder
	state      *ConversationState
	fieldKey   *string
	fieldValue json.RawMessage
	failed     bool

	terminal bool
	result   *MessageResult
	err      error

	now func() time.Time
}

func newStreamState(now func() time.Time) *streamState {
	return &streamState{now: now}
}

// handleLine processes one complete line and reports whether the exchange is over
func (s *streamState) handleLine(line string, observe ChunkObserver) bool {
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return false
	}

	var chunk StreamingChunk
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &chunk); err != nil {
		return false
	}

	s.dispatch(chunk, observe)
	return s.terminal
}

func (s *streamState) dispatch(chunk StreamingChunk, observe ChunkObserver) {
	switch chunk.Type {
	case ChunkError:
		s.failed = true
		msg := chunk.Error
		if msg == "" {
			msg = defaultStreamError
		}
		s.finish(nil, &StreamError{Message: msg})

	case ChunkContent:
		s.content.WriteString(chunk.Content)
		notify(observe, chunk)

	case ChunkField:
		if chunk.FieldKey != nil {
			s.fieldKey = chunk.FieldKey
			s.fieldValue = chunk.FieldValue
		}
		notify(observe, chunk)

	case ChunkStatus:
		s.state = chunk.State
		notify(observe, chunk)

	case ChunkDone:
		if s.state == nil || s.failed {
			s.finish(nil, &StreamError{Message: ErrIncompleteResponse.Error(), Err: ErrIncompleteResponse})
			return
		}
		if chunk.FieldKey != nil {
			s.fieldKey = chunk.FieldKey
			s.fieldValue = chunk.FieldValue
		}
		now := s.now()
		s.finish(&MessageResult{
			Message: ChatMessage{
				ID:         strconv.FormatInt(now.UnixMilli(), 10),
				Role:       RoleAssistant,
				Content:    s.content.String(),
				Timestamp:  now,
				FieldKey:   s.fieldKey,
				FieldValue: s.fieldValue,
			},
			State: *s.state,
		}, nil)
	}
}

func (s *streamState) finish(result *MessageResult, err error) {
	s.terminal = true
	s.result = result
	s.err = err
}

func notify(observe ChunkObserver, chunk StreamingChunk) {
	if observe != nil {
		observe(chunk)
	}
}

// consumeStream runs the incremental parse loop over body. A nil error with a
// nil result never happens: exhaustion and read failures come back as
// *fallbackError so the caller can retry without streaming.
func consumeStream(ctx context.Context, body io.Reader, observe ChunkObserver, now func() time.Time) (*MessageResult, error) {
	st := newStreamState(now)

	// The decoder holds back incomplete multi-byte sequences until the next read
	decoded := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, streamReadSize)
	var pending []byte

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, readErr := decoded.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := string(pending[:i])
				pending = pending[i+1:]

				if st.handleLine(line, observe) {
					return st.result, st.err
				}
			}
		}

		if readErr == io.EOF {
			return nil, &fallbackError{reason: "stream exhausted", cause: errStreamExhausted}
		}
		if readErr != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, &fallbackError{reason: "stream read failed", cause: readErr}
		}
	}
}
