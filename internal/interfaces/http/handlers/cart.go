// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/cart"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	response, err := h.cartService.GetCart(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Carrito", response)
}

// AddToCart handles POST /cart/items
// @Summary Add a catalog variant or a priced quote to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Param body body cart.AddItemRequest true "Exactly one of variant_id or quote_id"
// @Success 201 {object} cart.CartItem
// @Router /cart/items [post]
func (h *CartHandler) AddToCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.AddCartItem(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Producto agregado al carrito", item)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.UpdateCartItem(c.Request.Context(), actor, id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Carrito actualizado", item)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveCartItem(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Producto quitado del carrito", nil)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), actor); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Carrito vaciado", nil)
}
