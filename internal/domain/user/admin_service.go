// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/auth"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/pagination"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminService handles superadmin user management
type AdminService struct {
	db              *gorm.DB
	passwordManager *auth.PasswordManager
	log             *logrus.Entry
}

// NewAdminService creates a new admin service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:              db,
		passwordManager: auth.NewPasswordManager(cfg),
		log:             logger.Channel(logger.ChannelAuth),
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
	Role   Role   `form:"role"`
}

// UserListResponse represents paginated users
type UserListResponse struct {
	Users      []User                `json:"users"`
	Pagination pagination.Pagination `json:"pagination"`
}

// ListUsers lists users filtered by name/email and role
func (s *AdminService) ListUsers(ctx context.Context, actor Actor, req *UserListRequest) (*UserListResponse, error) {
	if err := actor.Require(RoleSuperadmin); err != nil {
		return nil, err
	}
	if req.Role != "" && !req.Role.Valid() {
		return nil, apperror.InvalidField("role", "rol inválido")
	}

	page, limit := pagination.Normalize(req.Page, req.Limit)
	query := s.db.WithContext(ctx).Model(&User{})

	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Persistence("count users", err)
	}

	var users []User
	if err := query.Order("created_at DESC").Offset(pagination.Offset(page, limit)).Limit(limit).Find(&users).Error; err != nil {
		return nil, apperror.Persistence("list users", err)
	}

	return &UserListResponse{Users: users, Pagination: pagination.New(page, limit, total)}, nil
}

// GetUser returns one user with details
func (s *AdminService) GetUser(ctx context.Context, actor Actor, userID uint) (*User, error) {
	if err := actor.Require(RoleSuperadmin); err != nil {
		return nil, err
	}

	var user User
	if err := s.db.WithContext(ctx).Preload("Detail").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Usuario")
		}
		return nil, apperror.Persistence("get user", err)
	}
	return &user, nil
}

// UpdateRole changes a user's role. A superadmin cannot change their own
// role, so the system never loses its last administrator by accident.
func (s *AdminService) UpdateRole(ctx context.Context, actor Actor, userID uint, role Role) (*User, error) {
	if err := actor.Require(RoleSuperadmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperror.InvalidField("role", "rol inválido")
	}
	if actor.ID == userID {
		return nil, apperror.Forbidden("No podés cambiar tu propio rol")
	}

	var user User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("role", role).Error; err != nil {
			return err
		}
		user.Role = role
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Usuario")
		}
		return nil, apperror.Persistence("update role", err)
	}

	s.log.WithFields(logrus.Fields{"actor_id": actor.ID, "user_id": userID, "role": role}).Info("user role updated")
	return &user, nil
}

// EnsureSuperadmin creates the account or promotes an existing one.
func (s *AdminService) EnsureSuperadmin(ctx context.Context, name, email, password string) (*User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{"role": RoleSuperadmin, "is_active": true}).Error; err != nil {
			return nil, false, apperror.Persistence("promote user", err)
		}
		user.Role, user.IsActive = RoleSuperadmin, true
		return &user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, apperror.Persistence("find user", err)
	}

	hashed, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return nil, false, apperror.InvalidField("password", err.Error())
	}

	user = User{Name: name, Email: email, Password: hashed, Role: RoleSuperadmin, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, apperror.Persistence("create superadmin", err)
	}

	s.log.WithField("user_id", user.ID).Info("superadmin created")
	return &user, true, nil
}
