package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier 批量 POST 到外部通知服务
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(client *resty.Client, url string) *WebhookNotifier {
	return &WebhookNotifier{client: client, url: url}
}

type webhookBody struct {
	Events []Event `json:"events"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, events ...Event) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(webhookBody{Events: events}).
		Post(n.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	return nil
}
