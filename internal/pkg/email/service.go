// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders templates and hands messages to the configured
// provider
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
	sender    Sender
	log       *logrus.Entry
}

// NewEmailService creates a new email service for the configured provider
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	var sender Sender
	switch cfg.External.Email.Provider {
	case "smtp":
		sender = NewSMTPSender(cfg.External.Email)
	case "log", "":
		sender = NewLogSender()
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.External.Email.Provider)
	}
	return NewEmailServiceWithSender(cfg, sender)
}

// NewEmailServiceWithSender creates an email service that delivers through
// sender
func NewEmailServiceWithSender(cfg *config.Config, sender Sender) (*EmailService, error) {
	service := &EmailService{
		config:    cfg,
		templates: make(map[string]*template.Template),
		sender:    sender,
		log:       logger.Channel(logger.ChannelWorker),
	}
	if err := service.loadTemplates(); err != nil {
		return nil, err
	}
	return service, nil
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if err := s.sender.Send(ctx, email); err != nil {
		return fmt.Errorf("send %s email: %w", email.Type, err)
	}

	s.log.WithFields(logrus.Fields{
		"type": email.Type,
		"to":   email.To,
	}).Info("email sent")
	return nil
}

// SendQuoteConfirmationEmail tells a customer their quote is ready to confirm
func (s *EmailService) SendQuoteConfirmationEmail(ctx context.Context, data QuoteConfirmationData) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.App.CompanyName,
		s.config.App.BaseURL,
		data.UserName,
		data.UserEmail,
	)
	if data.QuoteURL == "" && s.config.App.BaseURL != "" {
		data.QuoteURL = fmt.Sprintf("%s/presupuestos/%d", s.config.App.BaseURL, data.QuoteID)
	}

	htmlContent, err := s.renderTemplate("quote_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render quote confirmation template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     "Presupuesto listo para tu confirmación",
		HTMLContent: htmlContent,
		Type:        EmailTypeQuoteConfirmation,
		Data:        map[string]interface{}{"quote_id": data.QuoteID},
	})
}

// SendOrderConfirmationEmail sends the order summary, optionally with the
// invoice attached
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData, invoice []byte) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.App.CompanyName,
		s.config.App.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Confirmación de pedido %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data:        map[string]interface{}{"order_number": data.OrderNumber},
	}
	if len(invoice) > 0 {
		email.Attachments = append(email.Attachments, Attachment{
			Filename:    fmt.Sprintf("factura-%s.pdf", data.OrderNumber),
			ContentType: "application/pdf",
			Content:     invoice,
		})
	}
	return s.SendEmail(ctx, email)
}

// loadTemplates parses the embedded email templates
func (s *EmailService) loadTemplates() error {
	for _, name := range []string{"quote_confirmation", "order_confirmation"} {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return fmt.Errorf("failed to load template %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}
	return nil
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}
