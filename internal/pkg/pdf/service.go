// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/shopspring/decimal"
)

var funcs = template.FuncMap{
	"ars": pricing.FormatARS,
	"arsNull": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "a confirmar"
		}
		return "$" + pricing.FormatARS(d.Decimal)
	},
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}

var (
	invoiceTmpl = template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceTemplate))
	quoteTmpl   = template.Must(template.New("quote").Funcs(funcs).Parse(quoteTemplate))
)

// Service handles PDF generation
type Service struct {
	config  *config.Config
	convert func(html []byte) ([]byte, error)
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config:  cfg,
		convert: wkhtmlToPDF,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Order         *order.Order
	Company       CompanyInfo
}

// QuoteSheetData represents the data passed to the quote template
type QuoteSheetData struct {
	Quote   *quote.Quote
	Company CompanyInfo
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// GenerateInvoice generates a PDF invoice for an order
func (s *Service) GenerateInvoice(o *order.Order) ([]byte, error) {
	html, err := s.InvoiceHTML(o)
	if err != nil {
		return nil, err
	}
	return s.convert(html)
}

// GenerateQuoteSheet generates a PDF summary of a quote
func (s *Service) GenerateQuoteSheet(q *quote.Quote) ([]byte, error) {
	html, err := s.QuoteHTML(q)
	if err != nil {
		return nil, err
	}
	return s.convert(html)
}

// InvoiceHTML renders the invoice markup
func (s *Service) InvoiceHTML(o *order.Order) ([]byte, error) {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("FAC-%s", o.OrderNumber),
		InvoiceDate:   time.Now().Format("02/01/2006"),
		Order:         o,
		Company:       s.company(),
	}
	return render(invoiceTmpl, data)
}

// QuoteHTML renders the quote sheet markup
func (s *Service) QuoteHTML(q *quote.Quote) ([]byte, error) {
	return render(quoteTmpl, QuoteSheetData{Quote: q, Company: s.company()})
}

func (s *Service) company() CompanyInfo {
	return CompanyInfo{
		Name:    s.config.App.CompanyName,
		Address: s.config.App.CompanyAddress,
		Phone:   s.config.App.CompanyPhone,
		Email:   s.config.App.CompanyEmail,
	}
}

func render(tmpl *template.Template, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func wkhtmlToPDF(html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Encoding.Set("utf-8")

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return pdfg.Bytes(), nil
}

const styles = `
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; overflow: hidden; }
        .company-info { float: left; }
        .doc-info { float: right; text-align: right; }
        .doc-title { font-size: 28px; font-weight: bold; color: #c026d3; margin-bottom: 10px; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .num { text-align: right !important; }
        .total-row { font-size: 18px; font-weight: bold; }
        .footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
        pre { white-space: pre-wrap; font-family: inherit; }
    </style>`

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Factura {{.InvoiceNumber}}</title>` + styles + `
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
            {{if .Company.Phone}}<p>Tel: {{.Company.Phone}}</p>{{end}}
            {{if .Company.Email}}<p>{{.Company.Email}}</p>{{end}}
        </div>
        <div class="doc-info">
            <div class="doc-title">FACTURA</div>
            <p><strong>N°:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Fecha:</strong> {{.InvoiceDate}}</p>
            <p><strong>Pedido:</strong> {{.Order.OrderNumber}} ({{date .Order.CreatedAt}})</p>
            <p><strong>Estado:</strong> {{.Order.Status}}</p>
            <p><strong>Forma de pago:</strong> {{.Order.PaymentMethod}}</p>
        </div>
    </div>

    {{with .Order.User}}
    <p><strong>Cliente:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
    {{end}}

    <table class="items-table">
        <thead>
            <tr>
                <th>Producto</th>
                <th>Color</th>
                <th class="num">Cant.</th>
                <th class="num">Precio</th>
                <th class="num">Subtotal</th>
            </tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td>{{.Name}}</td>
                <td>{{.Color}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">${{ars .UnitPrice}}</td>
                <td class="num">${{ars .Subtotal}}</td>
            </tr>
            {{end}}
            <tr class="total-row">
                <td colspan="4" class="num">Total</td>
                <td class="num">${{ars .Order.Total}}</td>
            </tr>
        </tbody>
    </table>

    <div class="footer">
        <p>¡Gracias por tu compra!</p>
    </div>
</body>
</html>
`

const quoteTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Presupuesto #{{.Quote.ID}}</title>` + styles + `
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Phone}}<p>Tel: {{.Company.Phone}}</p>{{end}}
            {{if .Company.Email}}<p>{{.Company.Email}}</p>{{end}}
        </div>
        <div class="doc-info">
            <div class="doc-title">PRESUPUESTO</div>
            <p><strong>N°:</strong> {{.Quote.ID}}</p>
            <p><strong>Fecha:</strong> {{date .Quote.CreatedAt}}</p>
            <p><strong>Estado:</strong> {{.Quote.Status}}</p>
        </div>
    </div>

    <table class="items-table">
        <tr><th>Medidas</th><td>{{.Quote.HeightCM}} x {{.Quote.WidthCM}} cm</td></tr>
        {{if .Quote.LengthCM.Valid}}<tr><th>Largo de neón</th><td>{{.Quote.LengthCM.Decimal}} cm</td></tr>{{end}}
        <tr><th>Color</th><td>{{.Quote.Color}}</td></tr>
        <tr><th>Cantidad</th><td>{{.Quote.Quantity}}</td></tr>
        <tr class="total-row"><th>Precio estimado</th><td>{{arsNull .Quote.EstimatedPrice}}</td></tr>
    </table>

    {{if .Quote.Breakdown}}
    <h3>Detalle</h3>
    <pre>{{.Quote.Breakdown}}</pre>
    {{end}}

    <div class="footer">
        <p>Precio estimado sujeto a confirmación.</p>
    </div>
</body>
</html>
`
