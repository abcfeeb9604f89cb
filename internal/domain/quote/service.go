// internal/domain/quote/service.go
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/pricing"
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

// OracleRequest is what the estimation service receives for one sign
type OracleRequest struct {
	Image     []byte
	ImageName string
	HeightCM  decimal.Decimal
	WidthCM   decimal.Decimal
	Color     string
	Quantity  int
	Prompt    string
	Baseline  *pricing.Breakdown
}

// OracleResponse carries either a pricing narrative, a measured neon
// length, or both. Raw is the unparsed reply kept for auditing.
type OracleResponse struct {
	Narrative string
	LengthCM  *decimal.Decimal
	Raw       string
}

// Oracle estimates the price of a sign from its image and dimensions
type Oracle interface {
	Estimate(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

// ConfirmationNotice is sent when a quote starts waiting for the customer
type ConfirmationNotice struct {
	QuoteID        uint
	Name           string
	Email          string
	Color          string
	HeightCM       decimal.Decimal
	WidthCM        decimal.Decimal
	Quantity       int
	EstimatedPrice decimal.NullDecimal
	Status         Status
}

// Notifier delivers quote confirmation notices
type Notifier interface {
	QuoteAwaitingConfirmation(ctx context.Context, notice ConfirmationNotice) error
}

// ImageStore persists uploaded design images
type ImageStore interface {
	Validate(filename string, size int64) error
	Save(ctx context.Context, filename string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// PriceSource resolves the unit prices the pricing engine uses
type PriceSource interface {
	MaterialPrices(ctx context.Context, fallback pricing.UnitPrices) (pricing.UnitPrices, error)
}

// Service manages quotes
type Service struct {
	db       *gorm.DB
	config   *config.Config
	oracle   Oracle
	notifier Notifier
	images   ImageStore
	prices   PriceSource
	log      *logrus.Entry
}

// NewService creates a new quote service
func NewService(db *gorm.DB, cfg *config.Config, oracle Oracle, notifier Notifier, images ImageStore, prices PriceSource) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		oracle:   oracle,
		notifier: notifier,
		images:   images,
		prices:   prices,
		log:      logger.Channel(logger.ChannelQuotes),
	}
}

// SubmitRequest represents a new quote request
type SubmitRequest struct {
	Image     []byte          `json:"-"`
	ImageName string          `json:"-"`
	HeightCM  decimal.Decimal `json:"height_cm"`
	WidthCM   decimal.Decimal `json:"width_cm"`
	Color     string          `json:"color" validate:"required,max=50"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Note      string          `json:"note" validate:"max=2000"`
}

// SubmitResult is returned after a quote is created
type SubmitResult struct {
	QuoteID        uint                `json:"quote_id"`
	EstimatedPrice decimal.NullDecimal `json:"estimated_price"`
	Breakdown      string              `json:"breakdown"`
	Calculation    *pricing.Breakdown  `json:"calculation"`
}

// UpdateRequest represents a partial quote update
type UpdateRequest struct {
	Note           *string          `json:"note" validate:"omitempty,max=2000"`
	Breakdown      *string          `json:"breakdown" validate:"omitempty,max=20000"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price"`
}

// SubmitQuote prices a sign, asks the oracle for a narrative and stores
// the quote. A narrative without a TOTAL line still creates the quote,
// with no price.
func (s *Service) SubmitQuote(ctx context.Context, actor user.Actor, req *SubmitRequest) (*SubmitResult, error) {
	if !actor.Role.Valid() {
		return nil, apperror.Unauthenticated("Sesión inválida")
	}
	req.Color = strings.TrimSpace(req.Color)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Image) == 0 {
		return nil, apperror.InvalidField("image", "la imagen es obligatoria")
	}
	if err := s.images.Validate(req.ImageName, int64(len(req.Image))); err != nil {
		return nil, err
	}

	dims := pricing.Dimensions{HeightCM: req.HeightCM, WidthCM: req.WidthCM, Quantity: req.Quantity}
	prices, err := s.prices.MaterialPrices(ctx, s.fallbackPrices())
	if err != nil {
		s.log.WithError(err).Warn("material price lookup failed, using configured defaults")
	}

	baseline, err := pricing.Calculate(dims, prices)
	if err != nil {
		return nil, err
	}

	resp, err := s.oracle.Estimate(ctx, OracleRequest{
		Image:     req.Image,
		ImageName: req.ImageName,
		HeightCM:  req.HeightCM,
		WidthCM:   req.WidthCM,
		Color:     req.Color,
		Quantity:  req.Quantity,
		Prompt:    pricing.BuildPrompt(baseline, req.Color),
		Baseline:  baseline,
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", actor.ID).Error("oracle call failed")
		if apperror.Is(err, apperror.KindUpstreamOracle) {
			return nil, err
		}
		return nil, apperror.Upstream("No se pudo obtener el presupuesto", err)
	}

	calculation := baseline
	narrative := resp.Narrative
	var length decimal.NullDecimal
	if resp.LengthCM != nil {
		measured, err := pricing.CalculateWithLength(dims, *resp.LengthCM, prices)
		if err != nil {
			return nil, apperror.Upstream("Respuesta inválida del servicio de análisis", err)
		}
		calculation = measured
		length = decimal.NewNullDecimal(*resp.LengthCM)
		if narrative == "" {
			narrative = pricing.RenderNarrative(measured)
		}
	}

	price := extractPrice(narrative)
	if !price.Valid {
		s.log.WithField("user_id", actor.ID).Warn("no total found in oracle narrative")
	}

	path, err := s.images.Save(ctx, req.ImageName, req.Image)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("store quote image", err)
	}

	q := Quote{
		UserID:         actor.ID,
		HeightCM:       req.HeightCM,
		WidthCM:        req.WidthCM,
		LengthCM:       length,
		Color:          req.Color,
		Quantity:       req.Quantity,
		Image:          path,
		EstimatedPrice: price,
		Breakdown:      narrative,
		RawResponse:    resp.Raw,
		Note:           req.Note,
		Status:         StatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&q).Error
	})
	if err != nil {
		if delErr := s.images.Delete(ctx, path); delErr != nil {
			s.log.WithError(delErr).WithField("path", path).Warn("failed to remove orphaned quote image")
		}
		return nil, apperror.Persistence("create quote", err)
	}

	s.log.WithFields(logrus.Fields{
		"quote_id": q.ID,
		"user_id":  actor.ID,
		"priced":   price.Valid,
	}).Info("quote created")

	return &SubmitResult{
		QuoteID:        q.ID,
		EstimatedPrice: q.EstimatedPrice,
		Breakdown:      q.Breakdown,
		Calculation:    calculation,
	}, nil
}

// ListQuotes returns quotes newest first. Customers only see their own.
func (s *Service) ListQuotes(ctx context.Context, actor user.Actor, statusFilter string) ([]Quote, error) {
	statuses, err := filter.Statuses[Status](statusFilter, "status", Status.Valid)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&Quote{})
	if actor.IsStaff() {
		query = query.Preload("User")
	} else {
		query = query.Where("user_id = ?", actor.ID)
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var quotes []Quote
	if err := query.Order("created_at DESC, id DESC").Find(&quotes).Error; err != nil {
		return nil, apperror.Persistence("list quotes", err)
	}
	return quotes, nil
}

// GetQuote returns a quote to its owner or to staff
func (s *Service) GetQuote(ctx context.Context, actor user.Actor, id uint) (*Quote, error) {
	var q Quote
	if err := s.db.WithContext(ctx).Preload("User").First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Presupuesto")
		}
		return nil, apperror.Persistence("get quote", err)
	}
	if !actor.CanAccess(q.UserID) {
		return nil, apperror.Forbidden("No tenés acceso a este presupuesto")
	}
	return &q, nil
}

// UpdateQuoteStatus moves a quote to a new status. Entering
// esperando_confirmacion from another status notifies the customer once,
// after the transaction commits.
func (s *Service) UpdateQuoteStatus(ctx context.Context, actor user.Actor, id uint, status Status) (*Quote, error) {
	if err := actor.Require(user.RoleEmpleado); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperror.InvalidField("status", "estado inválido")
	}

	var q Quote
	var previous Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, id).Error; err != nil {
			return err
		}
		previous = q.Status
		if previous == status {
			return nil
		}
		q.Status = status
		return tx.Model(&q).Update("status", status).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Presupuesto")
		}
		return nil, apperror.Persistence("update quote status", err)
	}

	s.log.WithFields(logrus.Fields{
		"quote_id":   q.ID,
		"old_status": previous,
		"new_status": status,
		"actor_id":   actor.ID,
	}).Info("quote status updated")

	// The status change is committed; a disconnected client must not drop the email.
	if status == StatusAwaitingConfirm && previous != status {
		s.notifyAwaitingConfirmation(context.WithoutCancel(ctx), &q)
	}

	return &q, nil
}

// UpdateQuote edits a quote. Owners may change the note of their own
// quotes; staff may also revise the breakdown or set a price, which is
// written into the breakdown and extracted from it.
func (s *Service) UpdateQuote(ctx context.Context, actor user.Actor, id uint, req *UpdateRequest) (*Quote, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.EstimatedPrice != nil && req.EstimatedPrice.IsNegative() {
		return nil, apperror.InvalidField("estimated_price", "no puede ser negativo")
	}

	var q Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Presupuesto")
			}
			return err
		}

		if !actor.CanAccess(q.UserID) {
			return apperror.Forbidden("No tenés acceso a este presupuesto")
		}
		if !actor.IsStaff() && (req.Breakdown != nil || req.EstimatedPrice != nil) {
			return apperror.Forbidden("Solo el personal puede modificar el precio o el desglose")
		}

		if req.Note != nil {
			q.Note = *req.Note
		}

		repriced := false
		if req.Breakdown != nil {
			q.Breakdown = *req.Breakdown
			repriced = true
		}
		if req.EstimatedPrice != nil {
			q.Breakdown = appendTotal(q.Breakdown, *req.EstimatedPrice)
			repriced = true
		}
		if repriced {
			q.EstimatedPrice = extractPrice(q.Breakdown)
		}

		return tx.Model(&q).Select("note", "breakdown", "estimated_price").Updates(&q).Error
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Persistence("update quote", err)
	}

	s.log.WithFields(logrus.Fields{"quote_id": q.ID, "actor_id": actor.ID}).Info("quote updated")
	return &q, nil
}

// DeleteQuote removes a quote. Owners may delete while it is pendiente;
// superadmins may delete any quote.
func (s *Service) DeleteQuote(ctx context.Context, actor user.Actor, id uint) error {
	var q Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Presupuesto")
			}
			return err
		}

		ownerCanDelete := q.UserID == actor.ID && q.Status == StatusPending
		if !ownerCanDelete && !actor.Role.AtLeast(user.RoleSuperadmin) {
			return apperror.Forbidden("No podés eliminar este presupuesto")
		}
		return tx.Delete(&q).Error
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return err
		}
		return apperror.Persistence("delete quote", err)
	}

	if q.Image != "" {
		if err := s.images.Delete(ctx, q.Image); err != nil {
			s.log.WithError(err).WithField("quote_id", q.ID).Warn("failed to remove quote image")
		}
	}

	s.log.WithFields(logrus.Fields{"quote_id": q.ID, "actor_id": actor.ID}).Info("quote deleted")
	return nil
}

func (s *Service) notifyAwaitingConfirmation(ctx context.Context, q *Quote) {
	if s.notifier == nil {
		return
	}

	var owner user.User
	if err := s.db.WithContext(ctx).First(&owner, q.UserID).Error; err != nil {
		s.log.WithError(err).WithField("quote_id", q.ID).Error("cannot notify: quote owner not found")
		return
	}

	notice := ConfirmationNotice{
		QuoteID:        q.ID,
		Name:           owner.Name,
		Email:          owner.Email,
		Color:          q.Color,
		HeightCM:       q.HeightCM,
		WidthCM:        q.WidthCM,
		Quantity:       q.Quantity,
		EstimatedPrice: q.EstimatedPrice,
		Status:         q.Status,
	}
	if err := s.notifier.QuoteAwaitingConfirmation(ctx, notice); err != nil {
		s.log.WithError(err).WithField("quote_id", q.ID).Error("failed to dispatch confirmation notice")
		return
	}

	s.log.WithFields(logrus.Fields{"quote_id": q.ID, "email": owner.Email}).Info("confirmation notice dispatched")
}

func (s *Service) fallbackPrices() pricing.UnitPrices {
	return pricing.UnitPrices{
		NeonPerMeter:  s.config.Pricing.NeonPerMeter,
		PowerSupply:   s.config.Pricing.PowerSupply,
		AcrylicPerCM2: s.config.Pricing.AcrylicPerCM2,
		LaborPerMeter: s.config.Pricing.LaborPerMeter,
	}
}

func extractPrice(narrative string) decimal.NullDecimal {
	total, ok := pricing.ExtractTotal(narrative)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(total.Round(2))
}

func appendTotal(breakdown string, price decimal.Decimal) string {
	line := fmt.Sprintf("TOTAL: $%s ARS", pricing.FormatARS(price))
	breakdown = strings.TrimRight(breakdown, "\n")
	if breakdown == "" {
		return line + "\n"
	}
	return breakdown + "\n" + line + "\n"
}
