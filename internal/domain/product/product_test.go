package product_test

import (
	"context"
	"testing"

	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	staff    = user.Actor{ID: 1, Role: user.RoleEmpleado}
	customer = user.Actor{ID: 2, Role: user.RoleUsuario}
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newService(t *testing.T) *product.Service {
	db := testutil.NewDB(t, &product.Product{}, &product.ProductVariant{})
	return product.NewService(db)
}

func TestDeriveFinalPrice(t *testing.T) {
	assert.True(t, decimal.NewFromInt(150).Equal(product.DeriveFinalPrice(decimal.NewFromInt(100))))
	assert.True(t, decimal.RequireFromString("0.45").Equal(product.DeriveFinalPrice(decimal.RequireFromString("0.3"))))
	assert.True(t, decimal.Zero.Equal(product.DeriveFinalPrice(decimal.Zero)))
}

func TestCreateRawMaterial_DerivesFinalPrice(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{
		Type: product.TypeRawMaterial, Name: "Tira Neón", Unit: "m", Cost: dec("4000"), Price: dec("99"),
	})
	require.NoError(t, err)

	rm, ok := p.AsRawMaterial()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(6000).Equal(rm.FinalPrice))
	assert.False(t, p.Price.Valid)

	_, ok = p.AsFinishedGood()
	assert.False(t, ok)

	updated, err := svc.UpdateProduct(ctx, staff, p.ID, &product.ProductUpdateRequest{Cost: dec("5000")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7500).Equal(updated.FinalPrice.Decimal))

	reloaded, err := svc.GetProduct(ctx, staff, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7500).Equal(reloaded.FinalPrice.Decimal))
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeRawMaterial, Name: "Fuente"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: "servicio", Name: "x"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel", Price: dec("-1")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.CreateProduct(ctx, customer, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel"})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
}

func TestUpdateProduct_RejectsCrossTypeFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel Bar", Price: dec("25000")})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, staff, p.ID, &product.ProductUpdateRequest{Cost: dec("10")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.UpdateProduct(ctx, staff, 999, &product.ProductUpdateRequest{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListProducts_HidesRawMaterialsFromCustomers(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeRawMaterial, Name: "Acrílico", Cost: dec("0.2")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel Love", IsPredefined: true, Price: dec("30000")})
	require.NoError(t, err)

	public, err := svc.ListProducts(ctx, customer, &product.ProductListRequest{})
	require.NoError(t, err)
	require.Len(t, public.Products, 1)
	assert.Equal(t, "Cartel Love", public.Products[0].Name)

	all, err := svc.ListProducts(ctx, staff, &product.ProductListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Pagination.Total)

	materials, err := svc.ListRawMaterials(ctx, staff)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.True(t, decimal.RequireFromString("0.3").Equal(materials[0].FinalPrice))

	predefined, err := svc.ListPredefined(ctx)
	require.NoError(t, err)
	assert.Len(t, predefined, 1)

	_, err = svc.ListProducts(ctx, staff, &product.ProductListRequest{Type: "otro"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestMaterialPrices_FallsBackPerMaterial(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	fallback := pricing.UnitPrices{
		NeonPerMeter:  decimal.NewFromInt(6000),
		PowerSupply:   decimal.NewFromInt(3750),
		AcrylicPerCM2: decimal.RequireFromString("0.3"),
		LaborPerMeter: decimal.NewFromInt(10000),
	}

	prices, err := svc.MaterialPrices(ctx, fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, prices)

	_, err = svc.CreateProduct(ctx, staff, &product.ProductRequest{
		Type: product.TypeRawMaterial, Name: pricing.MaterialPowerSupply, Unit: "u", Cost: dec("3000"),
	})
	require.NoError(t, err)

	prices, err = svc.MaterialPrices(ctx, fallback)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4500).Equal(prices.PowerSupply))
	assert.True(t, fallback.NeonPerMeter.Equal(prices.NeonPerMeter))
}

func TestDeleteProduct(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, staff, p.ID))
	assert.True(t, apperror.Is(svc.DeleteProduct(ctx, staff, p.ID), apperror.KindNotFound))

	_, err = svc.GetProduct(ctx, staff, p.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestGetProduct_RawMaterialIsStaffOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	rm, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeRawMaterial, Name: "Tira Neón", Unit: "m", Cost: dec("4000")})
	require.NoError(t, err)
	sign, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeProduct, Name: "Cartel Love", Price: dec("30000")})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, customer, rm.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = svc.GetProduct(ctx, user.Actor{Role: user.RoleUsuario}, rm.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	got, err := svc.GetProduct(ctx, staff, rm.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(got.Cost.Decimal))

	got, err = svc.GetProduct(ctx, customer, sign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cartel Love", got.Name)
}

func TestCreateRawMaterial_FinalPriceKeepsExtraDecimal(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, staff, &product.ProductRequest{Type: product.TypeRawMaterial, Name: "Cable", Unit: "m", Cost: dec("0.1235")})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.18525").Equal(p.FinalPrice.Decimal))

	reloaded, err := svc.GetProduct(ctx, staff, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.18525").Equal(reloaded.FinalPrice.Decimal))
}
