// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"strings"

	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/pagination"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:  db,
		log: logger.Channel(logger.ChannelProduction),
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int         `form:"page"`
	Limit      int         `form:"limit"`
	Type       ProductType `form:"type"`
	Search     string      `form:"search"`
	Predefined *bool       `form:"predefined"`
}

// ProductListResponse represents paginated products
type ProductListResponse struct {
	Products   []Product             `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// ProductRequest represents product creation data
type ProductRequest struct {
	Type         ProductType      `json:"type" validate:"required,oneof=product raw_material"`
	Name         string           `json:"name" validate:"required,max=255"`
	Description  string           `json:"description" validate:"max=5000"`
	Image        string           `json:"image" validate:"max=500"`
	Unit         string           `json:"unit" validate:"max=20"`
	Cost         *decimal.Decimal `json:"cost"`
	Price        *decimal.Decimal `json:"price"`
	IsPredefined bool             `json:"is_predefined"`
}

// ProductUpdateRequest represents a partial product update. The type of a
// product cannot change.
type ProductUpdateRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=255"`
	Description  *string          `json:"description" validate:"omitempty,max=5000"`
	Image        *string          `json:"image" validate:"omitempty,max=500"`
	Unit         *string          `json:"unit" validate:"omitempty,max=20"`
	Cost         *decimal.Decimal `json:"cost"`
	Price        *decimal.Decimal `json:"price"`
	IsPredefined *bool            `json:"is_predefined"`
	IsActive     *bool            `json:"is_active"`
}

// ListProducts lists catalog rows. Non-staff callers only see active
// finished goods.
func (s *Service) ListProducts(ctx context.Context, actor user.Actor, req *ProductListRequest) (*ProductListResponse, error) {
	if req.Type != "" && !req.Type.Valid() {
		return nil, apperror.InvalidField("type", "tipo inválido")
	}

	page, limit := pagination.Normalize(req.Page, req.Limit)
	query := s.db.WithContext(ctx).Model(&Product{})

	if !actor.IsStaff() {
		query = query.Where("type = ? AND is_active = ?", TypeProduct, true)
	} else if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if req.Predefined != nil {
		query = query.Where("is_predefined = ?", *req.Predefined)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Persistence("count products", err)
	}

	var products []Product
	err := query.Preload("Variants", "is_active = ?", true).
		Order("name ASC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, apperror.Persistence("list products", err)
	}

	return &ProductListResponse{Products: products, Pagination: pagination.New(page, limit, total)}, nil
}

// ListPredefined returns the finished goods customers can buy directly
func (s *Service) ListPredefined(ctx context.Context) ([]FinishedGood, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Where("type = ? AND is_predefined = ? AND is_active = ?", TypeProduct, true, true).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, apperror.Persistence("list predefined products", err)
	}

	goods := make([]FinishedGood, 0, len(products))
	for i := range products {
		if fg, ok := products[i].AsFinishedGood(); ok {
			goods = append(goods, fg)
		}
	}
	return goods, nil
}

// GetProduct retrieves a single product with its variants. Raw materials
// expose costs and are reported as missing to customers.
func (s *Service) GetProduct(ctx context.Context, actor user.Actor, id uint) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).Preload("Variants").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Producto")
		}
		return nil, apperror.Persistence("get product", err)
	}
	if p.Type == TypeRawMaterial && !actor.Role.AtLeast(user.RoleEmpleado) {
		return nil, apperror.NotFound("Producto")
	}
	return &p, nil
}

// CreateProduct creates a finished good or a raw material
func (s *Service) CreateProduct(ctx context.Context, actor user.Actor, req *ProductRequest) (*Product, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	p := Product{
		Type:         req.Type,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Image:        req.Image,
		IsActive:     true,
		IsPredefined: req.IsPredefined,
		Unit:         req.Unit,
	}

	switch req.Type {
	case TypeRawMaterial:
		if req.Cost == nil {
			return nil, apperror.InvalidField("cost", "es obligatorio para materias primas")
		}
		if req.Cost.IsNegative() {
			return nil, apperror.InvalidField("cost", "no puede ser negativo")
		}
		p.Cost = decimal.NewNullDecimal(*req.Cost)
	case TypeProduct:
		if req.Price != nil {
			if !req.Price.IsPositive() {
				return nil, apperror.InvalidField("price", "debe ser mayor a 0")
			}
			p.Price = decimal.NewNullDecimal(*req.Price)
		}
	}
	p.applyDerivedFields()

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperror.Persistence("create product", err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "type": p.Type, "actor_id": actor.ID}).Info("product created")
	return &p, nil
}

// UpdateProduct applies a partial update and recomputes derived fields
func (s *Service) UpdateProduct(ctx context.Context, actor user.Actor, id uint, req *ProductUpdateRequest) (*Product, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var p Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}

		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Image != nil {
			p.Image = *req.Image
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}

		switch p.Type {
		case TypeRawMaterial:
			if req.Price != nil || req.IsPredefined != nil {
				return apperror.InvalidField("price", "las materias primas se valorizan por costo")
			}
			if req.Unit != nil {
				p.Unit = *req.Unit
			}
			if req.Cost != nil {
				if req.Cost.IsNegative() {
					return apperror.InvalidField("cost", "no puede ser negativo")
				}
				p.Cost = decimal.NewNullDecimal(*req.Cost)
			}
		case TypeProduct:
			if req.Cost != nil {
				return apperror.InvalidField("cost", "los productos no tienen costo de materia prima")
			}
			if req.Price != nil {
				if !req.Price.IsPositive() {
					return apperror.InvalidField("price", "debe ser mayor a 0")
				}
				p.Price = decimal.NewNullDecimal(*req.Price)
			}
			if req.IsPredefined != nil {
				p.IsPredefined = *req.IsPredefined
			}
		}
		p.applyDerivedFields()

		return tx.Save(&p).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Producto")
		}
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("update product", err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "actor_id": actor.ID}).Info("product updated")
	return &p, nil
}

// DeleteProduct soft-deletes a product
func (s *Service) DeleteProduct(ctx context.Context, actor user.Actor, id uint) error {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&Product{}, id)
	if result.Error != nil {
		return apperror.Persistence("delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("Producto")
	}

	s.log.WithFields(logrus.Fields{"product_id": id, "actor_id": actor.ID}).Info("product deleted")
	return nil
}

// ListRawMaterials returns every active raw material
func (s *Service) ListRawMaterials(ctx context.Context, actor user.Actor) ([]RawMaterial, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}

	var rows []Product
	if err := s.db.WithContext(ctx).Where("type = ?", TypeRawMaterial).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, apperror.Persistence("list raw materials", err)
	}

	materials := make([]RawMaterial, 0, len(rows))
	for i := range rows {
		if rm, ok := rows[i].AsRawMaterial(); ok {
			materials = append(materials, rm)
		}
	}
	return materials, nil
}

// MaterialPrices resolves the pricing engine's unit prices from the raw
// material catalog, using fallback for any material that is missing.
func (s *Service) MaterialPrices(ctx context.Context, fallback pricing.UnitPrices) (pricing.UnitPrices, error) {
	names := []string{pricing.MaterialNeonStrip, pricing.MaterialPowerSupply, pricing.MaterialAcrylic, pricing.MaterialLabor}

	var rows []Product
	err := s.db.WithContext(ctx).
		Where("type = ? AND is_active = ? AND name IN ?", TypeRawMaterial, true, names).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return fallback, apperror.Persistence("load material prices", err)
	}

	found := make(map[string]decimal.Decimal, len(rows))
	for i := range rows {
		if _, seen := found[rows[i].Name]; seen {
			continue
		}
		if price, ok := rows[i].CurrentPrice(); ok {
			found[rows[i].Name] = price
		}
	}

	prices := fallback
	if v, ok := found[pricing.MaterialNeonStrip]; ok {
		prices.NeonPerMeter = v
	}
	if v, ok := found[pricing.MaterialPowerSupply]; ok {
		prices.PowerSupply = v
	}
	if v, ok := found[pricing.MaterialAcrylic]; ok {
		prices.AcrylicPerCM2 = v
	}
	if v, ok := found[pricing.MaterialLabor]; ok {
		prices.LaborPerMeter = v
	}
	return prices, nil
}
