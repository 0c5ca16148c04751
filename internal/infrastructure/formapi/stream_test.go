package formapi

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/gateway/internal/testutil"
)

const (
	statusLine = `data: {"type":"status","state":{"session_id":"sess-1","agent_id":"agent-1","status":"active","collected_fields":{},"required_fields":["email"],"completed_fields":[]}}` + "\n"
	doneLine   = `data: {"type":"done"}` + "\n"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func contentLine(text string) string {
	return `data: {"type":"content","content":"` + text + `"}` + "\n"
}

func TestConsumeStream_ConcatenatesContentInOrder(t *testing.T) {
	body := testutil.NewChunkedReader(
		contentLine("Hel"),
		contentLine("lo, "),
		contentLine("world"),
		statusLine,
		doneLine,
	)

	result, err := consumeStream(context.Background(), body, nil, fixedClock)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Hello, world", result.Message.Content)
	assert.Equal(t, RoleAssistant, result.Message.Role)
	assert.Equal(t, fixedNow, result.Message.Timestamp)
	assert.Equal(t, "1792065600000", result.Message.ID)
	assert.Equal(t, "sess-1", result.State.SessionID)
	assert.Equal(t, StatusActive, result.State.Status)
}

func TestConsumeStream_LinesSplitAcrossReads(t *testing.T) {
	full := contentLine("split") + statusLine + doneLine
	var chunks []string
	for i := 0; i < len(full); i += 7 {
		end := i + 7
		if end > len(full) {
			end = len(full)
		}
		chunks = append(chunks, full[i:end])
	}

	result, err := consumeStream(context.Background(), testutil.NewChunkedReader(chunks...), nil, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, "split", result.Message.Content)
}

func TestConsumeStream_StopsReadingAfterTerminalChunk(t *testing.T) {
	tests := []struct {
		name     string
		first    string
		wantErr  bool
		wantText string
	}{
		{
			name:    "error chunk",
			first:   `data: {"type":"error","error":"boom"}` + "\n",
			wantErr: true,
		},
		{
			name:     "done chunk",
			first:    contentLine("hi") + statusLine + doneLine,
			wantText: "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := testutil.NewChunkedReader(tt.first, contentLine("late"), doneLine)
			var observed []StreamingChunk

			result, err := consumeStream(context.Background(), body, func(c StreamingChunk) {
				observed = append(observed, c)
			}, fixedClock)

			assert.Equal(t, 1, body.Reads, "no bytes should be read after a terminal chunk")
			for _, c := range observed {
				assert.NotEqual(t, "late", c.Content)
			}
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, result.Message.Content)
		})
	}
}

func TestConsumeStream_SkipsMalformedLines(t *testing.T) {
	body := testutil.NewChunkedReader(
		statusLine,
		contentLine("ok"),
		"data: {not valid json\n",
		": keepalive comment\n",
		"event: message\n",
		"\n",
		doneLine,
	)

	result, err := consumeStream(context.Background(), body, nil, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Message.Content)
}

func TestConsumeStream_DoneWithoutStateFails(t *testing.T) {
	body := testutil.NewChunkedReader(contentLine("partial"), doneLine)

	result, err := consumeStream(context.Background(), body, nil, fixedClock)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, "Incomplete response", err.Error())
	assert.True(t, errors.Is(err, ErrIncompleteResponse))

	var streamErr *StreamError
	assert.True(t, errors.As(err, &streamErr))
}

func TestConsumeStream_StatusWithoutStateReplacesSnapshot(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "null state", line: `data: {"type":"status","state":null}` + "\n"},
		{name: "missing state", line: `data: {"type":"status"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var observed []StreamingChunk
			body := testutil.NewChunkedReader(contentLine("hi"), statusLine, tt.line, doneLine)

			result, err := consumeStream(context.Background(), body, func(c StreamingChunk) {
				observed = append(observed, c)
			}, fixedClock)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrIncompleteResponse)
			require.Len(t, observed, 3)
			assert.Nil(t, observed[2].State)
		})
	}
}

func TestConsumeStream_ErrorChunkShortCircuits(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantMsg string
	}{
		{"server message", `data: {"type":"error","error":"boom"}`, "boom"},
		{"default message", `data: {"type":"error"}`, "Streaming error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Both lines arrive in the same read
			body := testutil.NewChunkedReader(tt.line + "\n" + contentLine("after") + statusLine + doneLine)
			calls := 0

			result, err := consumeStream(context.Background(), body, func(StreamingChunk) { calls++ }, fixedClock)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, 0, calls)
		})
	}
}

func TestConsumeStream_ExhaustionRequestsFallback(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"empty body", nil},
		{"no terminal chunk", []string{contentLine("a"), statusLine}},
		{"done without trailing newline", []string{statusLine, `data: {"type":"done"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := consumeStream(context.Background(), testutil.NewChunkedReader(tt.chunks...), nil, fixedClock)
			assert.Nil(t, result)

			var fb *fallbackError
			require.True(t, errors.As(err, &fb))
			assert.True(t, errors.Is(err, errStreamExhausted))
		})
	}
}

func TestConsumeStream_ReadErrorRequestsFallback(t *testing.T) {
	body := testutil.NewChunkedReader(statusLine)
	body.Err = io.ErrUnexpectedEOF

	_, err := consumeStream(context.Background(), body, nil, fixedClock)

	var fb *fallbackError
	require.True(t, errors.As(err, &fb))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestConsumeStream_MultiByteCharacterAcrossReads(t *testing.T) {
	// "é" is 0xC3 0xA9; "👋" is four bytes split 1/3
	first := "data: {\"type\":\"content\",\"content\":\"caf\xc3"
	second := "\xa9 \xf0"
	third := "\x9f\x91\x8b\"}\n" + statusLine + doneLine

	result, err := consumeStream(context.Background(), testutil.NewChunkedReader(first, second, third), nil, fixedClock)
	require.NoError(t, err)
	assert.Equal(t, "café 👋", result.Message.Content)
}

func TestConsumeStream_ObserverSequence(t *testing.T) {
	body := testutil.NewChunkedReader(
		contentLine("Your email?"),
		`data: {"type":"field","field_key":"email","field_value":"a@b.co"}`+"\n",
		statusLine,
		`data: {"type":"status","state":{"session_id":"sess-1","agent_id":"agent-1","status":"completed","collected_fields":{"email":"a@b.co"},"required_fields":["email"],"completed_fields":["email"]}}`+"\n",
		doneLine,
	)

	var types []ChunkType
	result, err := consumeStream(context.Background(), body, func(c StreamingChunk) {
		types = append(types, c.Type)
	}, fixedClock)
	require.NoError(t, err)

	assert.Equal(t, []ChunkType{ChunkContent, ChunkField, ChunkStatus, ChunkStatus}, types)
	assert.Equal(t, StatusCompleted, result.State.Status, "latest status snapshot wins")
	require.NotNil(t, result.Message.FieldKey)
	assert.Equal(t, "email", *result.Message.FieldKey)
	assert.JSONEq(t, `"a@b.co"`, string(result.Message.FieldValue))
	assert.Equal(t, "Your email?", result.Message.Content, "field chunks do not add text")
}

func TestConsumeStream_DoneFieldOverridesLastField(t *testing.T) {
	body := testutil.NewChunkedReader(
		`data: {"type":"field","field_key":"name","field_value":"Ada"}`+"\n",
		statusLine,
		`data: {"type":"done","field_key":"email","field_value":"ada@example.com"}`+"\n",
	)

	result, err := consumeStream(context.Background(), body, nil, fixedClock)
	require.NoError(t, err)
	require.NotNil(t, result.Message.FieldKey)
	assert.Equal(t, "email", *result.Message.FieldKey)
	assert.JSONEq(t, `"ada@example.com"`, string(result.Message.FieldValue))
}

func TestConsumeStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := testutil.NewChunkedReader(statusLine, doneLine)
	_, err := consumeStream(ctx, body, nil, fixedClock)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, body.Reads)
}

func TestConversationStateProgress(t *testing.T) {
	state := ConversationState{
		Status:          StatusActive,
		RequiredFields:  []string{"name", "email", "phone"},
		CompletedFields: []string{"email", "nickname"},
	}

	completed, required := state.Progress()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 3, required)
	assert.False(t, state.IsFinished())

	state.Status = StatusAbandoned
	assert.True(t, state.IsFinished())
}
