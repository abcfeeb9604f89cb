package inventory

import (
	"errors"
	"fmt"

	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reconciler applies stock deltas inside a caller-owned transaction. It never
// opens or commits transactions itself.
type Reconciler struct {
	log *logrus.Entry
}

// NewReconciler creates a new reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{log: logger.Channel(logger.ChannelProduction)}
}

// Credit describes a finished production batch to be added to stock
type Credit struct {
	ProductID     uint
	Color         string
	Quantity      int
	FallbackPrice decimal.NullDecimal
	BatchID       uint
	ActorID       uint
}

// CreditProductionBatch adds a batch's output to the (product, color)
// variant, creating the variant when it does not exist yet. The variant
// price is stamped from the product's current price, or from the batch
// price when the product has none.
func (r *Reconciler) CreditProductionBatch(tx *gorm.DB, c Credit) (*product.ProductVariant, error) {
	if c.Quantity <= 0 {
		return nil, apperror.InvalidField("quantity", "debe ser mayor a 0")
	}

	var p product.Product
	if err := tx.First(&p, c.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Producto")
		}
		return nil, apperror.Persistence("load product for credit", err)
	}

	seed := product.ProductVariant{ProductID: c.ProductID, Color: c.Color, IsActive: true}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, apperror.Persistence("create variant", err)
	}

	var variant product.ProductVariant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND color = ?", c.ProductID, c.Color).
		First(&variant).Error
	if err != nil {
		return nil, apperror.Persistence("lock variant", err)
	}

	previous := variant.Quantity
	updates := map[string]interface{}{
		"quantity":  gorm.Expr("quantity + ?", c.Quantity),
		"is_active": true,
	}
	if price, ok := p.CurrentPrice(); ok {
		updates["price"] = decimal.NewNullDecimal(price)
	} else if c.FallbackPrice.Valid {
		updates["price"] = c.FallbackPrice
	}

	if err := tx.Model(&variant).Updates(updates).Error; err != nil {
		return nil, apperror.Persistence("credit variant", err)
	}
	if err := tx.First(&variant, variant.ID).Error; err != nil {
		return nil, apperror.Persistence("reload variant", err)
	}

	ref := Reference{Type: RefProductionBatch, ID: c.BatchID, ActorID: c.ActorID}
	if err := recordMovement(tx, p.ID, &variant.ID, MovementTypeInbound, ReasonProduction, c.Quantity, previous, variant.Quantity, ref); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"batch_id":   c.BatchID,
		"variant_id": variant.ID,
		"quantity":   c.Quantity,
		"stock":      variant.Quantity,
	}).Info("production batch credited")

	return &variant, nil
}

// DebitOrderLine removes quantity units from a variant with a conditional
// decrement. It fails with a stock conflict when fewer units remain.
func (r *Reconciler) DebitOrderLine(tx *gorm.DB, variantID uint, quantity int, ref Reference) error {
	if quantity <= 0 {
		return apperror.InvalidField("quantity", "debe ser mayor a 0")
	}

	result := tx.Model(&product.ProductVariant{}).
		Where("id = ? AND quantity >= ?", variantID, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return apperror.Persistence("debit variant", result.Error)
	}

	var variant product.ProductVariant
	if err := tx.First(&variant, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Variante")
		}
		return apperror.Persistence("reload variant", err)
	}

	if result.RowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"variant_id": variantID,
			"requested":  quantity,
			"available":  variant.Quantity,
		}).Warn("insufficient stock")
		return apperror.StockConflict(fmt.Sprintf("Stock insuficiente para la variante %d", variantID))
	}

	return recordMovement(tx, variant.ProductID, &variant.ID, MovementTypeOutbound, ReasonSale,
		quantity, variant.Quantity+quantity, variant.Quantity, ref)
}

// RestockOrderLine returns quantity units of a cancelled order line to stock
func (r *Reconciler) RestockOrderLine(tx *gorm.DB, variantID uint, quantity int, ref Reference) error {
	if quantity <= 0 {
		return nil
	}

	result := tx.Model(&product.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
	if result.Error != nil {
		return apperror.Persistence("restock variant", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("Variante")
	}

	var variant product.ProductVariant
	if err := tx.First(&variant, variantID).Error; err != nil {
		return apperror.Persistence("reload variant", err)
	}

	return recordMovement(tx, variant.ProductID, &variant.ID, MovementTypeInbound, ReasonCancellation,
		quantity, variant.Quantity-quantity, variant.Quantity, ref)
}

// AddRawMaterialStock increments the stock of a raw material
func (r *Reconciler) AddRawMaterialStock(tx *gorm.DB, productID uint, quantity int, ref Reference) (*product.Product, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidField("quantity", "debe ser mayor a 0")
	}

	var p product.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Materia prima")
		}
		return nil, apperror.Persistence("lock raw material", err)
	}
	if p.Type != product.TypeRawMaterial {
		return nil, apperror.InvalidField("product_id", "no es una materia prima")
	}

	previous := p.Stock
	if err := tx.Model(&p).UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error; err != nil {
		return nil, apperror.Persistence("add raw material stock", err)
	}
	p.Stock = previous + quantity

	if err := recordMovement(tx, p.ID, nil, MovementTypeInbound, ReasonPurchase, quantity, previous, p.Stock, ref); err != nil {
		return nil, err
	}
	return &p, nil
}

func recordMovement(tx *gorm.DB, productID uint, variantID *uint, typ MovementType, reason MovementReason, qty, previous, current int, ref Reference) error {
	movement := StockMovement{
		ProductID:        productID,
		VariantID:        variantID,
		MovementType:     typ,
		Reason:           reason,
		Quantity:         qty,
		PreviousQuantity: previous,
		NewQuantity:      current,
		ReferenceType:    ref.Type,
		ReferenceID:      ref.ID,
		CreatedBy:        ref.ActorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return apperror.Persistence("record stock movement", err)
	}
	return nil
}
