// internal/domain/inventory/service.go
package inventory

import (
	"context"

	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles stock operations that run in their own transaction
type Service struct {
	db         *gorm.DB
	reconciler *Reconciler
	log        *logrus.Entry
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, reconciler *Reconciler) *Service {
	return &Service{
		db:         db,
		reconciler: reconciler,
		log:        logger.Channel(logger.ChannelProduction),
	}
}

// AddStockRequest represents a raw material purchase
type AddStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// AddRawMaterialStock records a purchase of a raw material
func (s *Service) AddRawMaterialStock(ctx context.Context, actor user.Actor, productID uint, quantity int) (*product.RawMaterial, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}

	var updated *product.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.reconciler.AddRawMaterialStock(tx, productID, quantity, Reference{
			Type:    RefPurchase,
			ID:      productID,
			ActorID: actor.ID,
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("add raw material stock", err)
	}

	s.log.WithFields(logrus.Fields{
		"product_id": productID,
		"quantity":   quantity,
		"stock":      updated.Stock,
		"actor_id":   actor.ID,
	}).Info("raw material stock added")

	rm, _ := updated.AsRawMaterial()
	return &rm, nil
}

// ListMovements returns the newest stock movements of a product
func (s *Service) ListMovements(ctx context.Context, actor user.Actor, productID uint, limit int) ([]StockMovement, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var movements []StockMovement
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, apperror.Persistence("list stock movements", err)
	}
	return movements, nil
}
