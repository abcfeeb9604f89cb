// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/auth"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	log             *logrus.Entry
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		log:             logger.Channel(logger.ChannelAuth),
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Name            string `json:"name" binding:"required" validate:"required,max=150"`
	Email           string `json:"email" binding:"required,email" validate:"required,email"`
	Password        string `json:"password" binding:"required" validate:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required" validate:"required"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// DetailsRequest represents the customer detail form
type DetailsRequest struct {
	Address  string `json:"address" validate:"max=255"`
	City     string `json:"city" validate:"max=100"`
	Province string `json:"province" validate:"max=100"`
	DNI      string `json:"dni" validate:"omitempty,numeric,min=7,max=9"`
	Phone    string `json:"phone" validate:"max=30"`
	Note     string `json:"note" validate:"max=2000"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates a new customer account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, apperror.InvalidField("confirm_password", "las contraseñas no coinciden")
	}

	hashed, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.InvalidField("password", err.Error())
	}

	email := strings.ToLower(req.Email)
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperror.Persistence("check email", err)
	}
	if count > 0 {
		return nil, apperror.Conflict("Ya existe una cuenta con ese email")
	}

	user := User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Role:     RoleUsuario,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperror.Persistence("create user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")

	return s.issueTokens(ctx, &user)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(req.Email)), true).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Persistence("find user", err)
		}
		s.log.WithField("email", req.Email).Warn("login failed: unknown email")
		return nil, apperror.Unauthenticated("Email o contraseña inválidos")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		s.log.WithField("user_id", user.ID).Warn("login failed: bad password")
		return nil, apperror.Unauthenticated("Email o contraseña inválidos")
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return s.issueTokens(ctx, &user)
}

// RefreshToken exchanges a refresh token for a new token pair. The role is
// reloaded so demotions take effect on the next refresh.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthenticated("Token de actualización inválido")
	}

	var user User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthenticated("Token de actualización inválido")
		}
		return nil, apperror.Persistence("find user", err)
	}

	return s.issueTokens(ctx, &user)
}

// GetProfile returns the user with its detail record
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Preload("Detail").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Usuario")
		}
		return nil, apperror.Persistence("get profile", err)
	}
	return &user, nil
}

// SaveDetails creates or replaces the caller's detail record
func (s *Service) SaveDetails(ctx context.Context, actor Actor, req *DetailsRequest) (*UserDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var detail UserDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", actor.ID).First(&detail).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		detail.UserID = actor.ID
		detail.Address = req.Address
		detail.City = req.City
		detail.Province = req.Province
		detail.DNI = req.DNI
		detail.Phone = req.Phone
		detail.Note = req.Note

		return tx.Save(&detail).Error
	})
	if err != nil {
		return nil, apperror.Persistence("save user detail", err)
	}

	return &detail, nil
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperror.Persistence("generate access token", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Persistence("generate refresh token", err)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("last_login_at", now).Error; err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to stamp last login")
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}
