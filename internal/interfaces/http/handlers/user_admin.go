package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
)

// UserAdminHandler handles superadmin user management
type UserAdminHandler struct {
	adminService *user.AdminService
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(adminService *user.AdminService) *UserAdminHandler {
	return &UserAdminHandler{adminService: adminService}
}

// GetUsers handles GET /admin/users
func (h *UserAdminHandler) GetUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, validate.Binding(err))
		return
	}

	response, err := h.adminService.ListUsers(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Usuarios", response)
}

// GetUser handles GET /admin/users/:id
func (h *UserAdminHandler) GetUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	u, err := h.adminService.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Usuario", u)
}

// UpdateUserRole handles PATCH /admin/users/:id/role
func (h *UserAdminHandler) UpdateUserRole(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Role user.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.adminService.UpdateRole(c.Request.Context(), actor, id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Rol actualizado", u)
}
