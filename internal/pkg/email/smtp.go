// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	jwemail "github.com/jordan-wright/email"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send implements Sender
func (s *SMTPSender) Send(_ context.Context, email *Email) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host")
	}

	msg := jwemail.NewEmail()
	if s.cfg.FromName != "" {
		msg.From = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	} else {
		msg.From = s.cfg.FromEmail
	}
	msg.To = email.To
	msg.Subject = email.Subject
	msg.HTML = []byte(email.HTMLContent)
	if email.TextContent != "" {
		msg.Text = []byte(email.TextContent)
	}
	for _, a := range email.Attachments {
		if _, err := msg.Attach(bytes.NewReader(a.Content), a.Filename, a.ContentType); err != nil {
			return fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	return msg.Send(fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort), auth)
}

// LogSender writes emails to the log instead of delivering them. Used in
// development.
type LogSender struct {
	log *logrus.Entry
}

// NewLogSender creates a log-only sender
func NewLogSender() *LogSender {
	return &LogSender{log: logger.Channel(logger.ChannelWorker)}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, email *Email) error {
	s.log.WithFields(logrus.Fields{
		"type":        email.Type,
		"to":          email.To,
		"subject":     email.Subject,
		"attachments": len(email.Attachments),
	}).Info("email delivery skipped by log provider")
	return nil
}
