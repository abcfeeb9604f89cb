// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
)

// InvoiceRenderer renders an order invoice as PDF
type InvoiceRenderer interface {
	GenerateInvoice(o *order.Order) ([]byte, error)
}

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	invoices     InvoiceRenderer
	config       *config.Config
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, invoices InvoiceRenderer, cfg *config.Config) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		invoices:     invoices,
		config:       cfg,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	pdfBytes, err := h.invoices.GenerateInvoice(o)
	if err != nil {
		logger.Channel(logger.ChannelOrders).WithError(err).WithField("order_number", o.OrderNumber).Error("invoice generation failed")
		respondError(c, apperror.Persistence("generate invoice", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=factura-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(len(pdfBytes)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GetInvoiceData handles GET /orders/:id/invoice/data (for frontend preview)
func (h *InvoiceHandler) GetInvoiceData(c *gin.Context) {
	o, ok := h.loadOrder(c)
	if !ok {
		return
	}

	respondOK(c, http.StatusOK, "Factura", gin.H{
		"invoice_number": fmt.Sprintf("FAC-%s", o.OrderNumber),
		"invoice_date":   time.Now().Format("02/01/2006"),
		"order":          o,
		"company": gin.H{
			"name":    h.config.App.CompanyName,
			"address": h.config.App.CompanyAddress,
			"phone":   h.config.App.CompanyPhone,
			"email":   h.config.App.CompanyEmail,
		},
	})
}

// loadOrder returns the order to its owner or to staff
func (h *InvoiceHandler) loadOrder(c *gin.Context) (*order.Order, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return nil, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return o, true
}
