// internal/domain/production/service.go
package production

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/filter"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles production batches
type Service struct {
	db         *gorm.DB
	reconciler *inventory.Reconciler
	log        *logrus.Entry
}

// NewService creates a new production service
func NewService(db *gorm.DB, reconciler *inventory.Reconciler) *Service {
	return &Service{
		db:         db,
		reconciler: reconciler,
		log:        logger.Channel(logger.ChannelProduction),
	}
}

// CreateBatchRequest represents production batch creation data
type CreateBatchRequest struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Color     string           `json:"color" validate:"max=50"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	Status    BatchStatus      `json:"status" validate:"omitempty,oneof=Pendiente 'En produccion' Finalizado"`
	Price     *decimal.Decimal `json:"price"`
}

// UpdateBatchRequest represents a partial batch update
type UpdateBatchRequest struct {
	Status   *BatchStatus     `json:"status" validate:"omitempty,oneof=Pendiente 'En produccion' Finalizado"`
	Quantity *int             `json:"quantity" validate:"omitempty,min=1"`
	Price    *decimal.Decimal `json:"price"`
}

// StockItem is one row of the stock overview
type StockItem struct {
	ProductID       uint                     `json:"product_id"`
	Name            string                   `json:"name"`
	Total           int                      `json:"total"`
	Variants        []product.ProductVariant `json:"variants"`
	LastBatchStatus *BatchStatus             `json:"last_batch_status"`
}

// RecordBatch creates a batch. A batch created directly as Finalizado is
// credited to stock in the same transaction.
func (s *Service) RecordBatch(ctx context.Context, actor user.Actor, req *CreateBatchRequest) (*ProductionBatch, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperror.InvalidField("price", "no puede ser negativo")
	}

	batch := ProductionBatch{
		ProductID: req.ProductID,
		Color:     strings.TrimSpace(req.Color),
		Quantity:  req.Quantity,
		Status:    req.Status,
		CreatedBy: actor.ID,
	}
	if batch.Status == "" {
		batch.Status = StatusPending
	}
	if req.Price != nil {
		batch.Price = decimal.NewNullDecimal(*req.Price)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireFinishedGood(tx, batch.ProductID); err != nil {
			return err
		}
		if err := tx.Create(&batch).Error; err != nil {
			return apperror.Persistence("create production batch", err)
		}
		if batch.Status == StatusFinished {
			return s.credit(tx, &batch, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":   batch.ID,
		"product_id": batch.ProductID,
		"color":      batch.Color,
		"quantity":   batch.Quantity,
		"status":     batch.Status,
		"created_by": actor.ID,
	}).Info("production batch created")

	return &batch, nil
}

// UpdateBatch changes the status, quantity or price of a batch. Entering
// Finalizado credits stock exactly once; a credited batch is frozen.
func (s *Service) UpdateBatch(ctx context.Context, actor user.Actor, id uint, req *UpdateBatchRequest) (*ProductionBatch, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperror.InvalidField("price", "no puede ser negativo")
	}

	var batch ProductionBatch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&batch, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Lote de producción")
			}
			return apperror.Persistence("lock production batch", err)
		}

		if batch.Credited() {
			if req.Quantity != nil || req.Price != nil || (req.Status != nil && *req.Status != StatusFinished) {
				return apperror.InvalidField("status", "el lote ya fue finalizado y acreditado en stock")
			}
			return nil
		}

		if req.Quantity != nil {
			batch.Quantity = *req.Quantity
		}
		if req.Price != nil {
			batch.Price = decimal.NewNullDecimal(*req.Price)
		}
		if req.Status != nil {
			batch.Status = *req.Status
		}

		if err := tx.Model(&batch).Select("quantity", "price", "status").Updates(&batch).Error; err != nil {
			return apperror.Persistence("update production batch", err)
		}

		if batch.Status == StatusFinished {
			return s.credit(tx, &batch, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":   batch.ID,
		"new_status": batch.Status,
		"quantity":   batch.Quantity,
		"actor_id":   actor.ID,
	}).Info("production batch updated")

	return &batch, nil
}

// ListBatches returns batches newest first, optionally filtered by a
// comma-separated list of statuses.
func (s *Service) ListBatches(ctx context.Context, actor user.Actor, statusFilter string) ([]ProductionBatch, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}

	statuses, err := filter.Statuses[BatchStatus](statusFilter, "status", BatchStatus.Valid)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("Product")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var batches []ProductionBatch
	if err := query.Order("created_at DESC, id DESC").Find(&batches).Error; err != nil {
		return nil, apperror.Persistence("list production batches", err)
	}
	return batches, nil
}

// StockOverview lists every finished good with its variant stock and the
// status of its most recently touched batch.
func (s *Service) StockOverview(ctx context.Context, actor user.Actor) ([]StockItem, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}

	var products []product.Product
	err := s.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("color ASC") }).
		Where("type = ?", product.TypeProduct).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, apperror.Persistence("load stock", err)
	}

	items := make([]StockItem, 0, len(products))
	for _, p := range products {
		item := StockItem{ProductID: p.ID, Name: p.Name, Variants: p.Variants}
		for _, v := range p.Variants {
			item.Total += v.Quantity
		}

		var last ProductionBatch
		err := s.db.WithContext(ctx).
			Where("product_id = ?", p.ID).
			Order("updated_at DESC, id DESC").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return nil, apperror.Persistence("load last batch", err)
		}
		if last.ID != 0 {
			status := last.Status
			item.LastBatchStatus = &status
		}
		items = append(items, item)
	}

	s.log.WithField("total", len(items)).Debug("stock overview listed")
	return items, nil
}

func (s *Service) requireFinishedGood(tx *gorm.DB, productID uint) error {
	var p product.Product
	if err := tx.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.InvalidField("product_id", "el producto no existe")
		}
		return apperror.Persistence("load product", err)
	}
	if p.Type != product.TypeProduct {
		return apperror.InvalidField("product_id", "solo se producen productos terminados")
	}
	return nil
}

// credit is the transition gate: it credits stock only for an uncredited
// batch and stamps credited_at in the same transaction.
func (s *Service) credit(tx *gorm.DB, batch *ProductionBatch, actor user.Actor) error {
	if batch.Credited() {
		return nil
	}

	_, err := s.reconciler.CreditProductionBatch(tx, inventory.Credit{
		ProductID:     batch.ProductID,
		Color:         batch.Color,
		Quantity:      batch.Quantity,
		FallbackPrice: batch.Price,
		BatchID:       batch.ID,
		ActorID:       actor.ID,
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result := tx.Model(&ProductionBatch{}).
		Where("id = ? AND credited_at IS NULL", batch.ID).
		UpdateColumn("credited_at", now)
	if result.Error != nil {
		return apperror.Persistence("stamp batch credit", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict("El lote ya fue acreditado")
	}
	batch.CreditedAt = &now
	return nil
}
