package formapi

import (
	"context"
	"net/http"
)

type AgentsClient struct {
	client *Client
}

func (a *AgentsClient) List(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := a.client.call(ctx, http.MethodGet, "/agents", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (a *AgentsClient) Get(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := a.client.call(ctx, http.MethodGet, pathEscape("agents", id), nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (a *AgentsClient) Create(ctx context.Context, input AgentInput) (*Agent, error) {
	var agent Agent
	if err := a.client.call(ctx, http.MethodPost, "/agents", nil, input, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (a *AgentsClient) Update(ctx context.Context, id string, input AgentInput) (*Agent, error) {
	var agent Agent
	if err := a.client.call(ctx, http.MethodPut, pathEscape("agents", id), nil, input, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (a *AgentsClient) Delete(ctx context.Context, id string) error {
	return a.client.call(ctx, http.MethodDelete, pathEscape("agents", id), nil, nil, nil)
}
