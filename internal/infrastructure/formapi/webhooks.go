package formapi

import (
	"context"
	"net/http"
)

// WebhooksClient manages webhook subscriptions. Delivery, retries and dead
// lettering happen in the backend; the client only inspects and re-queues.
type WebhooksClient struct {
	client *Client
}

func (w *WebhooksClient) List(ctx context.Context) ([]Webhook, error) {
	var hooks []Webhook
	if err := w.client.call(ctx, http.MethodGet, "/webhooks", nil, nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

func (w *WebhooksClient) Create(ctx context.Context, input WebhookInput) (*Webhook, error) {
	var hook Webhook
	if err := w.client.call(ctx, http.MethodPost, "/webhooks", nil, input, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

func (w *WebhooksClient) Delete(ctx context.Context, id string) error {
	return w.client.call(ctx, http.MethodDelete, pathEscape("webhooks", id), nil, nil, nil)
}

func (w *WebhooksClient) Deliveries(ctx context.Context, webhookID string) ([]WebhookDelivery, error) {
	var deliveries []WebhookDelivery
	if err := w.client.call(ctx, http.MethodGet, pathEscape("webhooks", webhookID, "deliveries"), nil, nil, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (w *WebhooksClient) RetryDelivery(ctx context.Context, webhookID, deliveryID string) (*WebhookDelivery, error) {
	var delivery WebhookDelivery
	path := pathEscape("webhooks", webhookID, "deliveries", deliveryID, "retry")
	if err := w.client.call(ctx, http.MethodPost, path, nil, nil, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}
