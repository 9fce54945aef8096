package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/httpclient"
)

// Webhook posts Slack-compatible {"text": ...} messages.
type Webhook struct {
	url    string
	client *httpclient.Client
}

var _ app.Notifier = (*Webhook)(nil)

type webhookMessage struct {
	Text string `json:"text"`
}

func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	client, err := httpclient.New("webhook",
		httpclient.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return &Webhook{url: url, client: client}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, a domain.Alert) error {
	_, err := w.client.Post(ctx, httpclient.Call{
		URL:  w.url,
		Op:   "notify",
		Body: webhookMessage{Text: "*" + a.Subject + "*\n" + a.Body},
		Check: func(status int, body []byte) error {
			if status >= 300 {
				return fmt.Errorf("webhook returned %d: %s", status, string(body))
			}
			return nil
		},
	})
	if err != nil {
		return apperror.New(apperror.CodeNotifyFailed, apperror.WithCause(err), apperror.WithContext("webhook"))
	}
	return nil
}
