package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// APISender posts messages to a transactional mail HTTP API.
type APISender struct {
	client *resty.Client
	from   string
	log    *zap.Logger
}

type apiRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

func NewAPISender(baseURL, apiKey, from string, log *zap.Logger) *APISender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("User-Agent", "milestone-escrow/mail").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode() >= 500)
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &APISender{client: client, from: from, log: log}
}

func (s *APISender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(apiRequest{
			From:    s.from,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    textBody(msg),
		}).
		Post("/send")
	if err != nil {
		return fmt.Errorf("mail api unavailable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail api returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	s.log.Debug("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
