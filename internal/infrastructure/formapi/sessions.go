package formapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type SessionsClient struct {
	client *Client
}

func (f SessionFilter) query() url.Values {
	q := url.Values{}
	if f.AgentID != "" {
		q.Set("agent_id", f.AgentID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

func (s *SessionsClient) List(ctx context.Context, filter SessionFilter) (*SessionList, error) {
	var list SessionList
	if err := s.client.call(ctx, http.MethodGet, "/sessions", filter.query(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get returns a session with its full message transcript
func (s *SessionsClient) Get(ctx context.Context, id string) (*SessionDetail, error) {
	var detail SessionDetail
	if err := s.client.call(ctx, http.MethodGet, pathEscape("sessions", id), nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	return s.client.call(ctx, http.MethodDelete, pathEscape("sessions", id), nil, nil, nil)
}
