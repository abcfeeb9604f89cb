// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/production"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/interfaces/http/middleware"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
)

// ProductHandler handles catalog and stock endpoints
type ProductHandler struct {
	productService    *product.Service
	inventoryService  *inventory.Service
	productionService *production.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *product.Service, inventory *inventory.Service, production *production.Service) *ProductHandler {
	return &ProductHandler{
		productService:    products,
		inventoryService:  inventory,
		productionService: production,
	}
}

// GetProducts handles GET /products
// @Summary List catalog products
// @Tags products
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param type query string false "product or raw_material (staff only)"
// @Param search query string false "Name search"
// @Success 200 {object} product.ProductListResponse
// @Router /products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, validate.Binding(err))
		return
	}

	// Anonymous callers browse as customers.
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		actor = user.Actor{Role: user.RoleUsuario}
	}

	response, err := h.productService.ListProducts(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Productos", response)
}

// GetPredefined handles GET /products/predefined
func (h *ProductHandler) GetPredefined(c *gin.Context) {
	goods, err := h.productService.ListPredefined(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Carteles predefinidos", goods)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		actor = user.Actor{Role: user.RoleUsuario}
	}

	p, err := h.productService.GetProduct(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Producto", p)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req product.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Producto creado", p)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.ProductUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.UpdateProduct(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Producto actualizado", p)
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Producto eliminado", nil)
}

// GetRawMaterials handles GET /products/raw-materials
func (h *ProductHandler) GetRawMaterials(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	materials, err := h.productService.ListRawMaterials(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Materias primas", materials)
}

// AddStock handles POST /products/:id/add-stock
func (h *ProductHandler) AddStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inventory.AddStockRequest
	if !bindJSON(c, &req) {
		return
	}

	material, err := h.inventoryService.AddRawMaterialStock(c.Request.Context(), actor, id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock actualizado", material)
}

// GetMovements handles GET /products/:id/movements?limit=
func (h *ProductHandler) GetMovements(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	movements, err := h.inventoryService.ListMovements(c.Request.Context(), actor, id, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Movimientos de stock", movements)
}

// GetStock handles GET /products/stock
func (h *ProductHandler) GetStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.productionService.StockOverview(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock", items)
}
