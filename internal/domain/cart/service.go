// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewService creates a new cart service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:  db,
		log: logger.Channel(logger.ChannelCart),
	}
}

// CartResponse represents a cart with its lines and totals
type CartResponse struct {
	ID     uint       `json:"id"`
	UserID uint       `json:"user_id"`
	Items  []CartItem `json:"items"`
	Totals CartTotals `json:"totals"`
}

// AddItemRequest represents add to cart request. Exactly one of VariantID
// and QuoteID must be set.
type AddItemRequest struct {
	VariantID *uint `json:"variant_id"`
	QuoteID   *uint `json:"quote_id"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart returns the caller's cart, creating it on first use
func (s *Service) GetCart(ctx context.Context, actor user.Actor) (*CartResponse, error) {
	var c Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := FindOrCreate(tx, actor.ID)
		if err != nil {
			return err
		}
		c = *found
		return tx.Preload("Variant.Product").Preload("Quote").
			Where("cart_id = ?", c.ID).
			Order("id ASC").
			Find(&c.Items).Error
	})
	if err != nil {
		return nil, apperror.Persistence("load cart", err)
	}

	return &CartResponse{ID: c.ID, UserID: c.UserID, Items: c.Items, Totals: c.Totals()}, nil
}

// AddCartItem adds a variant or a quote to the cart. The unit price is
// taken from the variant price or the quote's estimated price; adding a
// line that already exists increments its quantity.
func (s *Service) AddCartItem(ctx context.Context, actor user.Actor, req *AddItemRequest) (*CartItem, error) {
	if (req.VariantID == nil) == (req.QuoteID == nil) {
		return nil, apperror.InvalidField("variant_id", "se debe enviar variant_id o quote_id")
	}
	if req.Quantity < 1 {
		return nil, apperror.InvalidField("quantity", "debe ser al menos 1")
	}

	var item CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := FindOrCreate(tx, actor.ID)
		if err != nil {
			return apperror.Persistence("load cart", err)
		}

		query := tx.Where("cart_id = ?", c.ID)
		if req.VariantID != nil {
			query = query.Where("variant_id = ?", *req.VariantID)
		} else {
			query = query.Where("quote_id = ?", *req.QuoteID)
		}
		err = query.First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = CartItem{CartID: c.ID, VariantID: req.VariantID, QuoteID: req.QuoteID}
		case err != nil:
			return apperror.Persistence("find cart item", err)
		}
		item.Quantity += req.Quantity

		if req.VariantID != nil {
			v, err := s.purchasableVariant(tx, *req.VariantID)
			if err != nil {
				return err
			}
			if v.Quantity < item.Quantity {
				return apperror.StockConflict(fmt.Sprintf("Solo quedan %d unidades disponibles", v.Quantity))
			}
			item.UnitPrice = v.Price.Decimal
		} else {
			if item.Quantity != 1 {
				return apperror.InvalidField("quantity", "un presupuesto se compra como una unidad")
			}
			q, err := s.ownedPricedQuote(tx, actor, *req.QuoteID)
			if err != nil {
				return err
			}
			item.UnitPrice = q.EstimatedPrice.Decimal
		}
		item.Recalculate()

		if err := tx.Save(&item).Error; err != nil {
			return apperror.Persistence("save cart item", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("add cart item", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    actor.ID,
		"item_id":    item.ID,
		"variant_id": item.VariantID,
		"quote_id":   item.QuoteID,
		"quantity":   item.Quantity,
	}).Info("cart item added")

	return &item, nil
}

// UpdateCartItem sets the quantity of a line and recomputes its subtotal
func (s *Service) UpdateCartItem(ctx context.Context, actor user.Actor, itemID uint, quantity int) (*CartItem, error) {
	if quantity < 1 {
		return nil, apperror.InvalidField("quantity", "debe ser al menos 1")
	}

	var item CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownedItem(tx, actor, itemID, &item); err != nil {
			return err
		}

		if item.VariantID != nil {
			v, err := s.purchasableVariant(tx, *item.VariantID)
			if err != nil {
				return err
			}
			if v.Quantity < quantity {
				return apperror.StockConflict(fmt.Sprintf("Solo quedan %d unidades disponibles", v.Quantity))
			}
		} else if quantity != 1 {
			return apperror.InvalidField("quantity", "un presupuesto se compra como una unidad")
		}

		item.Quantity = quantity
		item.Recalculate()
		if err := tx.Model(&item).Select("quantity", "subtotal").Updates(&item).Error; err != nil {
			return apperror.Persistence("update cart item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "item_id": item.ID, "quantity": quantity}).Info("cart item updated")
	return &item, nil
}

// RemoveCartItem deletes a line. Only the cart owner may remove it.
func (s *Service) RemoveCartItem(ctx context.Context, actor user.Actor, itemID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item CartItem
		if err := s.ownedItem(tx, actor, itemID, &item); err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return apperror.Persistence("delete cart item", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "item_id": itemID}).Info("cart item removed")
	return nil
}

// ClearCart removes every line of the caller's cart
func (s *Service) ClearCart(ctx context.Context, actor user.Actor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Cart
		err := tx.Where("user_id = ?", actor.ID).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return Clear(tx, c.ID)
	})
	if err != nil {
		return apperror.Persistence("clear cart", err)
	}

	s.log.WithField("user_id", actor.ID).Info("cart cleared")
	return nil
}

// FindOrCreate returns the user's cart inside tx, creating it if needed
func FindOrCreate(tx *gorm.DB, userID uint) (*Cart, error) {
	var c Cart
	if err := tx.Where(Cart{UserID: userID}).FirstOrCreate(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadItems returns the lines of the user's cart inside tx
func LoadItems(tx *gorm.DB, userID uint) (*Cart, error) {
	var c Cart
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Clear deletes every line of a cart inside tx
func Clear(tx *gorm.DB, cartID uint) error {
	return tx.Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}

func (s *Service) ownedItem(tx *gorm.DB, actor user.Actor, itemID uint, item *CartItem) error {
	if err := tx.First(item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Ítem del carrito")
		}
		return apperror.Persistence("find cart item", err)
	}

	var c Cart
	if err := tx.First(&c, item.CartID).Error; err != nil {
		return apperror.Persistence("find cart", err)
	}
	if c.UserID != actor.ID {
		s.log.WithFields(logrus.Fields{"user_id": actor.ID, "item_id": itemID}).Warn("cart item access denied")
		return apperror.Forbidden("No autorizado")
	}
	return nil
}

func (s *Service) purchasableVariant(tx *gorm.DB, variantID uint) (*product.ProductVariant, error) {
	var v product.ProductVariant
	if err := tx.Preload("Product").First(&v, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Variante")
		}
		return nil, apperror.Persistence("find variant", err)
	}
	if v.Product == nil || !v.Product.IsActive || !v.Purchasable() {
		return nil, apperror.InvalidField("variant_id", "la variante no está disponible para la venta")
	}
	return &v, nil
}

func (s *Service) ownedPricedQuote(tx *gorm.DB, actor user.Actor, quoteID uint) (*quote.Quote, error) {
	var q quote.Quote
	if err := tx.First(&q, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Presupuesto")
		}
		return nil, apperror.Persistence("find quote", err)
	}
	if q.UserID != actor.ID {
		return nil, apperror.Forbidden("El presupuesto no te pertenece")
	}
	if !q.Priced() {
		return nil, apperror.InvalidField("quote_id", "el presupuesto todavía no tiene precio")
	}
	if q.Status == quote.StatusCancelled {
		return nil, apperror.InvalidField("quote_id", "el presupuesto está cancelado")
	}
	return &q, nil
}
