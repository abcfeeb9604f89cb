package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/production"
)

// ProductionHandler handles production batch endpoints
type ProductionHandler struct {
	productionService *production.Service
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(productionService *production.Service) *ProductionHandler {
	return &ProductionHandler{productionService: productionService}
}

// ListBatches handles GET /production-batches?status=
func (h *ProductionHandler) ListBatches(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	batches, err := h.productionService.ListBatches(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Lotes de producción", batches)
}

// CreateBatch handles POST /production-batches
// @Summary Record a production batch
// @Description A batch created as Finalizado is credited to stock immediately.
// @Tags production
// @Accept json
// @Produce json
// @Param body body production.CreateBatchRequest true "Batch"
// @Success 201 {object} production.ProductionBatch
// @Router /production-batches [post]
func (h *ProductionHandler) CreateBatch(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req production.CreateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.productionService.RecordBatch(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Lote registrado", batch)
}

// UpdateBatch handles PUT /production-batches/:id
func (h *ProductionHandler) UpdateBatch(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req production.UpdateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.productionService.UpdateBatch(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Lote actualizado", batch)
}
