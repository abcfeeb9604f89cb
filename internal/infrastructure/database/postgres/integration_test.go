//go:build integration

package postgres_test

// Runs against a real Postgres via testcontainers, where row locks are
// honored. Run with: go test -tags integration ./internal/infrastructure/...

import (
	"context"
	"sync"
	"testing"

	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/production"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/infrastructure/database/postgres"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("neon_test"),
		tcPostgres.WithUsername("neon"),
		tcPostgres.WithPassword("neon"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := testutil.Config()
	cfg.Database.MaxOpenConns = 20
	conn, err := postgres.Open(dsn, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m := postgres.NewMigration(conn.GetDB())
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData("admin@neon.test", "cambiar123"))
	return conn.GetDB()
}

func createUser(t *testing.T, db *gorm.DB, email string, role user.Role) user.Actor {
	u := user.User{Name: email, Email: email, Password: "x", Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return u.Actor()
}

func TestSeedInitialData_Idempotent(t *testing.T) {
	db := setupPostgres(t)
	require.NoError(t, postgres.NewMigration(db).SeedInitialData("admin@neon.test", "cambiar123"))

	var materials []product.Product
	require.NoError(t, db.Where("type = ?", product.TypeRawMaterial).Order("id").Find(&materials).Error)
	require.Len(t, materials, 3)
	assert.Equal(t, pricing.MaterialNeonStrip, materials[0].Name)
	assert.True(t, decimal.NewFromInt(6000).Equal(materials[0].FinalPrice.Decimal))

	var admins int64
	require.NoError(t, db.Model(&user.User{}).Where("role = ?", user.RoleSuperadmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)
}

func TestRawMaterialFinalPrice_KeepsFullScale(t *testing.T) {
	db := setupPostgres(t)
	svc := product.NewService(db)
	staff := createUser(t, db, "taller@neon.test", user.RoleEmpleado)
	cost := decimal.RequireFromString("0.1235")

	p, err := svc.CreateProduct(context.Background(), staff, &product.ProductRequest{
		Type: product.TypeRawMaterial, Name: "Cable", Unit: "m", Cost: &cost,
	})
	require.NoError(t, err)

	var stored product.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.True(t, decimal.RequireFromString("0.18525").Equal(stored.FinalPrice.Decimal), stored.FinalPrice.Decimal.String())
	assert.True(t, product.DeriveFinalPrice(stored.Cost.Decimal).Equal(stored.FinalPrice.Decimal))
}

func TestConcurrentCheckout_LastUnit(t *testing.T) {
	db := setupPostgres(t)
	svc := order.NewService(db, inventory.NewReconciler())

	p := product.Product{Type: product.TypeProduct, Name: "Cartel Bar", IsActive: true, Price: decimal.NewNullDecimal(decimal.NewFromInt(25000))}
	require.NoError(t, db.Create(&p).Error)
	v := product.ProductVariant{ProductID: p.ID, Color: "rosa", Quantity: 1, Price: p.Price, IsActive: true}
	require.NoError(t, db.Create(&v).Error)

	const buyers = 5
	actors := make([]user.Actor, buyers)
	for i := range actors {
		actors[i] = createUser(t, db, "cliente"+string(rune('a'+i))+"@neon.test", user.RoleUsuario)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for _, actor := range actors {
		wg.Add(1)
		go func(a user.Actor) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), a, &order.CheckoutRequest{
				PaymentMethod: "transferencia",
				Items:         []order.CheckoutItem{{VariantID: &v.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperror.Is(err, apperror.KindStockConflict) {
				conflicts++
			}
		}(actor)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, conflicts)

	var after product.ProductVariant
	require.NoError(t, db.First(&after, v.ID).Error)
	assert.Equal(t, 0, after.Quantity)

	var orders int64
	require.NoError(t, db.Model(&order.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestConcurrentBatchFinish_CreditsOnce(t *testing.T) {
	db := setupPostgres(t)
	svc := production.NewService(db, inventory.NewReconciler())
	staff := createUser(t, db, "taller@neon.test", user.RoleEmpleado)

	p := product.Product{Type: product.TypeProduct, Name: "Cartel Luna", IsActive: true}
	require.NoError(t, db.Create(&p).Error)

	batch, err := svc.RecordBatch(context.Background(), staff, &production.CreateBatchRequest{
		ProductID: p.ID, Color: "azul", Quantity: 4,
	})
	require.NoError(t, err)

	finished := production.StatusFinished
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.UpdateBatch(context.Background(), staff, batch.ID, &production.UpdateBatchRequest{Status: &finished})
		}()
	}
	wg.Wait()

	var v product.ProductVariant
	require.NoError(t, db.Where("product_id = ? AND color = ?", p.ID, "azul").First(&v).Error)
	assert.Equal(t, 4, v.Quantity)

	var credits int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).
		Where("reference_type = ? AND reference_id = ?", inventory.RefProductionBatch, batch.ID).
		Count(&credits).Error)
	assert.Equal(t, int64(1), credits)
}
