// internal/interfaces/http/handlers/upload.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/infrastructure/storage"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// UploadHandler handles catalog image uploads and private quote images
type UploadHandler struct {
	productImages *storage.LocalStore
	quoteImages   *storage.LocalStore
	quoteService  *quote.Service
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(productImages, quoteImages *storage.LocalStore, quoteService *quote.Service) *UploadHandler {
	return &UploadHandler{
		productImages: productImages,
		quoteImages:   quoteImages,
		quoteService:  quoteService,
	}
}

// UploadProductImage handles POST /products/images. The returned path is
// what product create and update requests carry in "image".
func (h *UploadHandler) UploadProductImage(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperror.InvalidField("image", "la imagen es obligatoria"))
		return
	}
	if err := h.productImages.Validate(file.Filename, file.Size); err != nil {
		respondError(c, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, apperror.InvalidField("image", "no se pudo leer la imagen"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, apperror.InvalidField("image", "no se pudo leer la imagen"))
		return
	}

	path, err := h.productImages.Save(c.Request.Context(), file.Filename, data)
	if err != nil {
		if _, ok := apperror.As(err); !ok {
			err = apperror.Persistence("store product image", err)
		}
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Imagen subida", gin.H{
		"path": path,
		"url":  h.productImages.URL(path),
	})
}

// GetQuoteImage handles GET /quotes/:id/image. Design images are only
// served to the quote owner and to staff.
func (h *UploadHandler) GetQuoteImage(c *gin.Context) {
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
	if q.Image == "" {
		respondError(c, apperror.NotFound("Imagen"))
		return
	}

	fullPath, err := h.quoteImages.Open(q.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.File(fullPath)
}
