// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/neonarte/neon-backend/internal/domain/cart"
	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/production"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},
		&user.UserDetail{},

		// Catalog and stock
		&product.Product{},
		&product.ProductVariant{},
		&inventory.StockMovement{},
		&production.ProductionBatch{},

		// Quotes
		&quote.Quote{},

		// Cart domain
		&cart.Cart{},
		&cart.CartItem{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db:  db,
		log: logrus.WithField("component", "migration"),
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("running database auto-migrations")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_type_active ON products(type, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_production_batches_product_updated ON production_batches(product_id, updated_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_quotes_user_created ON quotes(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created ON stock_movements(product_id, created_at DESC)",
	}

	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SeedInitialData inserts the pricing raw materials and a development
// superadmin. Existing rows are left untouched.
func (m *Migration) SeedInitialData(adminEmail, adminPassword string) error {
	if err := m.seedRawMaterials(); err != nil {
		return fmt.Errorf("failed to seed raw materials: %w", err)
	}
	if adminEmail != "" && adminPassword != "" {
		if err := m.seedSuperadmin(adminEmail, adminPassword); err != nil {
			return fmt.Errorf("failed to seed superadmin: %w", err)
		}
	}
	m.log.Info("initial data seeded")
	return nil
}

// seedRawMaterials creates the materials the pricing engine reads. Labor
// is left to the configured fallback.
func (m *Migration) seedRawMaterials() error {
	materials := []struct {
		name string
		unit string
		cost string
	}{
		{pricing.MaterialNeonStrip, "m", "4000"},
		{pricing.MaterialPowerSupply, "u", "2500"},
		{pricing.MaterialAcrylic, "cm2", "0.2"},
	}

	for _, mat := range materials {
		var existing product.Product
		err := m.db.Where("type = ? AND name = ?", product.TypeRawMaterial, mat.name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		cost := decimal.RequireFromString(mat.cost)
		row := product.Product{
			Type:       product.TypeRawMaterial,
			Name:       mat.name,
			Unit:       mat.unit,
			IsActive:   true,
			Cost:       decimal.NewNullDecimal(cost),
			FinalPrice: decimal.NewNullDecimal(product.DeriveFinalPrice(cost)),
		}
		if err := m.db.Create(&row).Error; err != nil {
			return err
		}
		m.log.WithField("material", mat.name).Info("raw material seeded")
	}
	return nil
}

func (m *Migration) seedSuperadmin(email, password string) error {
	var existing user.User
	err := m.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Name:     "Administrador",
		Email:    email,
		Password: string(hash),
		Role:     user.RoleSuperadmin,
		IsActive: true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return err
	}

	m.log.WithField("email", admin.Email).Info("superadmin seeded")
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	m.log.Warn("dropping all database tables")

	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", models[i], err)
		}
	}
	return nil
}
