package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/shopspring/decimal"
)

// QuoteSheetRenderer renders a quote as PDF
type QuoteSheetRenderer interface {
	GenerateQuoteSheet(q *quote.Quote) ([]byte, error)
}

// QuoteHandler handles custom sign quote endpoints
type QuoteHandler struct {
	quoteService *quote.Service
	sheets       QuoteSheetRenderer
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteService *quote.Service, sheets QuoteSheetRenderer) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, sheets: sheets}
}

// SubmitQuote handles POST /quotes (multipart/form-data)
// @Summary Request a price estimate for a custom sign
// @Tags quotes
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Design image"
// @Param height_cm formData number true "Height in cm"
// @Param width_cm formData number true "Width in cm"
// @Param color formData string true "Neon color"
// @Param quantity formData int true "Units"
// @Param note formData string false "Customer note"
// @Success 201 {object} quote.SubmitResult
// @Router /quotes [post]
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	req, err := parseSubmitForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.quoteService.SubmitQuote(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Presupuesto generado", result)
}

func parseSubmitForm(c *gin.Context) (*quote.SubmitRequest, error) {
	fields := map[string]string{}

	height, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("height_cm")))
	if err != nil {
		fields["height_cm"] = "debe ser un número"
	}
	width, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("width_cm")))
	if err != nil {
		fields["width_cm"] = "debe ser un número"
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity")))
	if err != nil {
		fields["quantity"] = "debe ser un número entero"
	}

	req := &quote.SubmitRequest{
		HeightCM: height,
		WidthCM:  width,
		Color:    c.PostForm("color"),
		Quantity: quantity,
		Note:     c.PostForm("note"),
	}

	file, err := c.FormFile("image")
	if err != nil {
		fields["image"] = "la imagen es obligatoria"
	} else {
		f, err := file.Open()
		if err != nil {
			return nil, apperror.InvalidField("image", "no se pudo leer la imagen")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, apperror.InvalidField("image", "no se pudo leer la imagen")
		}
		req.Image = data
		req.ImageName = file.Filename
	}

	if len(fields) > 0 {
		return nil, apperror.Validation("Error de validación", fields)
	}
	return req, nil
}

// ListQuotes handles GET /quotes?status=
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	quotes, err := h.quoteService.ListQuotes(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Presupuestos", quotes)
}

// GetQuote handles GET /quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	q, err := h.quoteService.GetQuote(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Presupuesto", q)
}

// DownloadQuote handles GET /quotes/:id/pdf
func (h *QuoteHandler) DownloadQuote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	q, err := h.quoteService.GetQuote(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	pdfBytes, err := h.sheets.GenerateQuoteSheet(q)
	if err != nil {
		logger.Channel(logger.ChannelQuotes).WithError(err).WithField("quote_id", q.ID).Error("quote sheet generation failed")
		respondError(c, apperror.Persistence("generate quote sheet", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=presupuesto-%d.pdf", q.ID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// UpdateQuote handles PATCH /quotes/:id
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req quote.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	q, err := h.quoteService.UpdateQuote(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Presupuesto actualizado", q)
}

// UpdateQuoteStatus handles PATCH /quotes/:id/status
func (h *QuoteHandler) UpdateQuoteStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status quote.Status `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	q, err := h.quoteService.UpdateQuoteStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Estado actualizado", q)
}

// DeleteQuote handles DELETE /quotes/:id
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Presupuesto eliminado", nil)
}
