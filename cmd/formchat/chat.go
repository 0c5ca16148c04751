package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/formpilot/gateway/internal/infrastructure/formapi"
)

type conversationClient interface {
	Start(ctx context.Context, agentID string) (*formapi.StartResult, error)
	SendMessageStream(ctx context.Context, msg formapi.SendMessageRequest, observe formapi.ChunkObserver) (*formapi.MessageResult, error)
}

type chat struct {
	conversations conversationClient
	out           io.Writer

	agent    *color.Color
	field    *color.Color
	dim      *color.Color
	failure  *color.Color
	finished *color.Color
}

func newChat(conversations conversationClient, out io.Writer) *chat {
	return &chat{
		conversations: conversations,
		out:           out,
		agent:         color.New(color.FgCyan),
		field:         color.New(color.FgYellow),
		dim:           color.New(color.Faint),
		failure:       color.New(color.FgRed),
		finished:      color.New(color.FgGreen, color.Bold),
	}
}

// parseInput turns a typed line into a turn. "/field key=value" submits a
// field value, parsed as JSON when possible and as a string otherwise.
func parseInput(line string) (formapi.SendMessageRequest, error) {
	if !strings.HasPrefix(line, "/field ") {
		return formapi.SendMessageRequest{Content: line}, nil
	}

	key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "/field ")), "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return formapi.SendMessageRequest{}, fmt.Errorf("usage: /field key=value")
	}
	value = strings.TrimSpace(value)

	var parsed interface{} = value
	if json.Valid([]byte(value)) {
		parsed = json.RawMessage(value)
	}
	return formapi.SendMessageRequest{FieldKey: &key, FieldValue: parsed}, nil
}

func (c *chat) progress(state formapi.ConversationState) {
	completed, required := state.Progress()
	c.dim.Fprintf(c.out, "[%d/%d fields · %s]\n", completed, required, state.Status)
}

// run starts a conversation and relays lines from in until the conversation
// finishes, the input ends, or the user types /quit
func (c *chat) run(ctx context.Context, agentID string, in io.Reader) error {
	started, err := c.conversations.Start(ctx, agentID)
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}
	c.agent.Fprintln(c.out, started.Message.Content)
	c.progress(started.State)

	sessionID := started.SessionID
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			fmt.Fprint(c.out, "> ")
			continue
		case line == "/quit":
			return nil
		}

		req, err := parseInput(line)
		if err != nil {
			c.failure.Fprintln(c.out, err)
			fmt.Fprint(c.out, "> ")
			continue
		}
		req.SessionID = sessionID

		result, err := c.conversations.SendMessageStream(ctx, req, func(chunk formapi.StreamingChunk) {
			switch chunk.Type {
			case formapi.ChunkContent:
				c.agent.Fprint(c.out, chunk.Content)
			case formapi.ChunkField:
				if chunk.FieldKey != nil {
					c.field.Fprintf(c.out, "\n  ✓ %s = %s\n", *chunk.FieldKey, string(chunk.FieldValue))
				}
			}
		})
		fmt.Fprintln(c.out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failure.Fprintf(c.out, "error: %v\n", err)
			fmt.Fprint(c.out, "> ")
			continue
		}

		c.progress(result.State)
		if result.State.IsFinished() {
			c.finished.Fprintf(c.out, "Conversation %s.\n", result.State.Status)
			return nil
		}
		fmt.Fprint(c.out, "> ")
	}
	return scanner.Err()
}
