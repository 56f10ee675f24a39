package mail

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/milestone-escrow/backend/internal/config"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks the transport configured by MAIL_PROVIDER.
func NewSender(cfg *config.Config, log *zap.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case "api":
		if cfg.MailAPIURL == "" {
			return nil, fmt.Errorf("MAIL_API_URL is required for the api mail provider")
		}
		return NewAPISender(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, log), nil
	case "smtp", "":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, log), nil
	case "log":
		return LogSender{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.MailProvider)
	}
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// LogSender writes messages to the log instead of delivering them. Local
// development only. Verification codes are masked.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) LogSender {
	return LogSender{log: log}
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("mail (not delivered)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", codePattern.ReplaceAllString(textBody(msg), "******")),
	)
	return nil
}

// VerificationCodeMessage renders the email carrying a one-time code.
func VerificationCodeMessage(to, code, purpose string, ttlMinutes int) Message {
	action := "confirm a sensitive action"
	if purpose != "" {
		action = "confirm " + strings.ReplaceAll(purpose, "_", " ")
	}
	body := fmt.Sprintf(`<p>Your verification code is</p>
<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>
<p>Use it to %s. It expires in %d minutes and works once.</p>
<p>If you did not request it, ignore this email.</p>`,
		html.EscapeString(code), html.EscapeString(action), ttlMinutes)

	return Message{To: to, Subject: "Your verification code", HTML: body}
}

// NotificationMessage renders a project notification.
func NotificationMessage(to, title, body string) Message {
	return Message{
		To:      to,
		Subject: title,
		HTML:    fmt.Sprintf("<h3>%s</h3><p>%s</p>", html.EscapeString(title), html.EscapeString(body)),
	}
}

func textBody(msg Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return HTMLToText(msg.HTML)
}
