// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeQuoteConfirmation EmailType = "quote_confirmation"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	TextContent string                 `json:"text_content,omitempty"`
	Type        EmailType              `json:"type"`
	Attachments []Attachment           `json:"-"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Attachment is an in-memory file attached to an email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// QuoteConfirmationData contains data for the quote ready email. Amounts
// arrive already formatted.
type QuoteConfirmationData struct {
	EmailTemplateData
	QuoteID        uint   `json:"quote_id"`
	Color          string `json:"color"`
	Dimensions     string `json:"dimensions"`
	Quantity       int    `json:"quantity"`
	EstimatedPrice string `json:"estimated_price"`
	Status         string `json:"status"`
	QuoteURL       string `json:"quote_url"`
}

// OrderConfirmationData contains data for order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber   string      `json:"order_number"`
	OrderDate     string      `json:"order_date"`
	OrderTotal    string      `json:"order_total"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
}

// OrderItem represents an item in the order
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Total    string `json:"total"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
