// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neonarte/neon-backend/internal/domain/cart"
	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/filter"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/pagination"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier is told about orders after they are committed
type Notifier interface {
	OrderPlaced(ctx context.Context, orderID uint) error
}

// Service handles order business logic
type Service struct {
	db         *gorm.DB
	reconciler *inventory.Reconciler
	notifier   Notifier
	log        *logrus.Entry
}

// NewService creates a new order service
func NewService(db *gorm.DB, reconciler *inventory.Reconciler) *Service {
	return &Service{
		db:         db,
		reconciler: reconciler,
		log:        logger.Channel(logger.ChannelOrders),
	}
}

// SetNotifier registers the receiver of order placed events
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CheckoutItem is an explicit line of a checkout request
type CheckoutItem struct {
	VariantID *uint `json:"variant_id"`
	QuoteID   *uint `json:"quote_id"`
	Quantity  int   `json:"quantity" validate:"min=1"`
}

// CheckoutRequest represents a checkout. When Items is empty the order is
// built from the caller's cart, which is cleared on success.
type CheckoutRequest struct {
	PaymentMethod string         `json:"payment_method" validate:"required,max=50"`
	Items         []CheckoutItem `json:"items" validate:"omitempty,dive"`
}

// CheckoutResult is returned by a successful checkout
type CheckoutResult struct {
	OrderID     uint            `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
}

// OrderListRequest represents order list request
type OrderListRequest struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
}

// OrderListResponse represents paginated orders
type OrderListResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// UpdateStatusRequest represents an order status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" validate:"required"`
	Comment string      `json:"comment" validate:"max=500"`
}

// Checkout turns explicit items or the caller's cart into an order. Prices
// are read from the current variant price or the quote's estimated price,
// stock of physical lines is debited, and everything happens in one
// transaction.
func (s *Service) Checkout(ctx context.Context, actor user.Actor, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	for i, item := range req.Items {
		if (item.VariantID == nil) == (item.QuoteID == nil) {
			return nil, apperror.InvalidField(fmt.Sprintf("items.%d", i), "se debe enviar variant_id o quote_id")
		}
	}

	fromCart := len(req.Items) == 0
	var order Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := req.Items
		var cartID uint
		if fromCart {
			c, err := cart.LoadItems(tx, actor.ID)
			if err != nil {
				return apperror.Persistence("load cart", err)
			}
			if len(c.Items) == 0 {
				return apperror.Validation("El carrito está vacío", nil)
			}
			cartID = c.ID
			items = make([]CheckoutItem, 0, len(c.Items))
			for _, ci := range c.Items {
				items = append(items, CheckoutItem{VariantID: ci.VariantID, QuoteID: ci.QuoteID, Quantity: ci.Quantity})
			}
		}

		order = Order{
			OrderNumber:   GenerateOrderNumber(time.Now()),
			UserID:        actor.ID,
			PaymentMethod: req.PaymentMethod,
			Status:        OrderStatusPending,
		}
		seenQuotes := make(map[uint]bool)
		for i, item := range items {
			if item.QuoteID != nil {
				if seenQuotes[*item.QuoteID] {
					return apperror.InvalidField(fmt.Sprintf("items.%d", i), "el presupuesto está repetido")
				}
				seenQuotes[*item.QuoteID] = true
			}
			line, err := s.priceLine(tx, actor, item)
			if err != nil {
				if appErr, ok := apperror.As(err); ok && appErr.Kind == apperror.KindValidation && !fromCart {
					return apperror.InvalidField(fmt.Sprintf("items.%d", i), appErr.Message)
				}
				return err
			}
			order.Items = append(order.Items, *line)
		}
		order.Total = order.SumItems()
		order.AddStatusHistory(OrderStatusPending, "Pedido creado", actor.ID)

		if err := tx.Create(&order).Error; err != nil {
			return apperror.Persistence("create order", err)
		}

		ref := inventory.Reference{Type: inventory.RefOrder, ID: order.ID, ActorID: actor.ID}
		for _, line := range order.Items {
			if !line.Physical() {
				continue
			}
			if err := s.reconciler.DebitOrderLine(tx, *line.VariantID, line.Quantity, ref); err != nil {
				return err
			}
		}

		if fromCart {
			if err := cart.Clear(tx, cartID); err != nil {
				return apperror.Persistence("clear cart", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": actor.ID,
			"error":   err.Error(),
		}).Warn("checkout failed")
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("checkout", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      actor.ID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
		"lines":        len(order.Items),
		"from_cart":    fromCart,
	}).Info("order created")

	if s.notifier != nil {
		// The order is committed; a disconnected client must not drop the email.
		if err := s.notifier.OrderPlaced(context.WithoutCancel(ctx), order.ID); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Error("order notification failed")
		}
	}

	return &CheckoutResult{OrderID: order.ID, OrderNumber: order.OrderNumber, Total: order.Total}, nil
}

// ListOrders returns the caller's orders, or every order for staff
func (s *Service) ListOrders(ctx context.Context, actor user.Actor, req *OrderListRequest) (*OrderListResponse, error) {
	statuses, err := filter.Statuses[OrderStatus](req.Status, "status", OrderStatus.Valid)
	if err != nil {
		return nil, err
	}

	page, limit := pagination.Normalize(req.Page, req.Limit)
	query := s.db.WithContext(ctx).Model(&Order{})
	if !actor.IsStaff() {
		query = query.Where("user_id = ?", actor.ID)
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Persistence("count orders", err)
	}

	var orders []Order
	if actor.IsStaff() {
		query = query.Preload("User")
	}
	if err := query.Preload("Items").
		Order("created_at DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, apperror.Persistence("list orders", err)
	}

	return &OrderListResponse{Orders: orders, Pagination: pagination.New(page, limit, total)}, nil
}

// GetOrder returns an order to its owner or to staff
func (s *Service) GetOrder(ctx context.Context, actor user.Actor, id uint) (*Order, error) {
	order, err := s.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperror.Forbidden("No autorizado")
	}
	return order, nil
}

// FindOrder loads an order with its owner, lines and history. It performs
// no access check and is meant for background jobs.
func (s *Service) FindOrder(ctx context.Context, id uint) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Pedido")
		}
		return nil, apperror.Persistence("get order", err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order along fulfillment or cancels it. Staff
// may move forward or cancel before delivery; the owner may only cancel a
// pending order. Cancelling returns physical lines to stock.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor user.Actor, id uint, req *UpdateStatusRequest) (*Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, apperror.InvalidField("status", "estado inválido")
	}

	var order Order
	var previous OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Pedido")
			}
			return apperror.Persistence("lock order", err)
		}
		previous = order.Status

		if err := authorizeTransition(actor, &order, req.Status); err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"status": req.Status}
		switch req.Status {
		case OrderStatusCancelled:
			updates["cancelled_at"] = now
			if err := s.restock(tx, actor, &order); err != nil {
				return err
			}
		case OrderStatusDelivered:
			updates["delivered_at"] = now
		}

		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return apperror.Persistence("update order status", err)
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    req.Status,
			Comment:   req.Comment,
			CreatedBy: actor.ID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperror.Persistence("record order history", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("update order status", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     previous,
		"to":       req.Status,
		"actor_id": actor.ID,
	}).Info("order status updated")

	return s.GetOrder(ctx, actor, order.ID)
}

func authorizeTransition(actor user.Actor, order *Order, next OrderStatus) error {
	if !actor.IsStaff() {
		if order.UserID != actor.ID {
			return apperror.Forbidden("No autorizado")
		}
		if next != OrderStatusCancelled || order.Status != OrderStatusPending {
			return apperror.Forbidden("Solo podés cancelar pedidos pendientes")
		}
		return nil
	}

	if next == OrderStatusCancelled {
		if !order.CanBeCancelled() {
			return apperror.InvalidField("status", fmt.Sprintf("un pedido %s no se puede cancelar", order.Status))
		}
		return nil
	}
	if !order.CanAdvanceTo(next) {
		return apperror.InvalidField("status", fmt.Sprintf("transición inválida de %s a %s", order.Status, next))
	}
	return nil
}

func (s *Service) restock(tx *gorm.DB, actor user.Actor, order *Order) error {
	var items []OrderItem
	if err := tx.Where("order_id = ? AND variant_id IS NOT NULL", order.ID).Find(&items).Error; err != nil {
		return apperror.Persistence("load order items", err)
	}

	ref := inventory.Reference{Type: inventory.RefOrder, ID: order.ID, ActorID: actor.ID}
	for _, item := range items {
		if err := s.reconciler.RestockOrderLine(tx, *item.VariantID, item.Quantity, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) priceLine(tx *gorm.DB, actor user.Actor, item CheckoutItem) (*OrderItem, error) {
	line := &OrderItem{VariantID: item.VariantID, QuoteID: item.QuoteID, Quantity: item.Quantity}

	if item.VariantID != nil {
		var v product.ProductVariant
		if err := tx.Preload("Product").First(&v, *item.VariantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("Variante")
			}
			return nil, apperror.Persistence("find variant", err)
		}
		if v.Product == nil || v.Product.Type != product.TypeProduct || !v.Product.IsActive || !v.Purchasable() {
			return nil, apperror.Validation("La variante no está disponible para la venta", nil)
		}
		line.Name = v.Product.Name
		line.Color = v.Color
		line.UnitPrice = v.Price.Decimal
	} else {
		// The estimated price already covers every sign of the quote.
		if item.Quantity != 1 {
			return nil, apperror.InvalidField("quantity", "un presupuesto se compra como una unidad")
		}
		var q quote.Quote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, *item.QuoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("Presupuesto")
			}
			return nil, apperror.Persistence("find quote", err)
		}
		if q.UserID != actor.ID {
			return nil, apperror.Forbidden("El presupuesto no te pertenece")
		}
		if !q.Priced() || q.Status == quote.StatusCancelled {
			return nil, apperror.Validation("El presupuesto no tiene un precio confirmado", nil)
		}

		var ordered int64
		err := tx.Model(&OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("order_items.quote_id = ? AND orders.status <> ?", q.ID, OrderStatusCancelled).
			Count(&ordered).Error
		if err != nil {
			return nil, apperror.Persistence("find quote orders", err)
		}
		if ordered > 0 {
			return nil, apperror.Conflict(fmt.Sprintf("El presupuesto #%d ya tiene un pedido", q.ID))
		}
		line.Name = fmt.Sprintf("Cartel a medida #%d (%sx%s cm)", q.ID, q.HeightCM.String(), q.WidthCM.String())
		line.Color = q.Color
		line.UnitPrice = q.EstimatedPrice.Decimal
	}

	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return line, nil
}
