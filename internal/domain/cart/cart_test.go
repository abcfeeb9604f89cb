package cart_test

import (
	"context"
	"testing"

	"github.com/neonarte/neon-backend/internal/domain/cart"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *cart.Service
	customer user.Actor
	other    user.Actor
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t,
		&user.User{}, &user.UserDetail{},
		&product.Product{}, &product.ProductVariant{},
		&quote.Quote{},
		&cart.Cart{}, &cart.CartItem{},
	)

	customer := user.User{Name: "Ana", Email: "ana@example.com", Password: "x"}
	other := user.User{Name: "Beto", Email: "beto@example.com", Password: "x"}
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&other).Error)

	return &fixture{db: db, svc: cart.NewService(db), customer: customer.Actor(), other: other.Actor()}
}

func (f *fixture) variant(t *testing.T, stock int, price int64) product.ProductVariant {
	p := product.Product{Type: product.TypeProduct, Name: "Cartel Bar", IsActive: true, Price: decimal.NewNullDecimal(decimal.NewFromInt(price))}
	require.NoError(t, f.db.Create(&p).Error)
	v := product.ProductVariant{ProductID: p.ID, Color: "rosa", Quantity: stock, Price: decimal.NewNullDecimal(decimal.NewFromInt(price)), IsActive: true}
	require.NoError(t, f.db.Create(&v).Error)
	return v
}

func (f *fixture) quote(t *testing.T, owner uint, price decimal.NullDecimal) quote.Quote {
	q := quote.Quote{
		UserID:         owner,
		HeightCM:       decimal.NewFromInt(50),
		WidthCM:        decimal.NewFromInt(30),
		Color:          "azul",
		Quantity:       1,
		EstimatedPrice: price,
		Status:         quote.StatusAwaitingConfirm,
	}
	require.NoError(t, f.db.Create(&q).Error)
	return q
}

func uintPtr(v uint) *uint { return &v }

func TestGetCart_CreatesEmptyCart(t *testing.T) {
	f := setup(t)

	c, err := f.svc.GetCart(context.Background(), f.customer)
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Empty(t, c.Items)
	assert.True(t, c.Totals.Total.IsZero())

	again, err := f.svc.GetCart(context.Background(), f.customer)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
}

func TestAddCartItem_VariantMergesLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.variant(t, 10, 25000)

	_, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 2})
	require.NoError(t, err)
	item, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, item.Quantity)
	assert.True(t, decimal.NewFromInt(75000).Equal(item.Subtotal))

	c, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Totals.TotalQuantity)
	assert.True(t, decimal.NewFromInt(75000).Equal(c.Totals.Total))
}

func TestAddCartItem_Quote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.quote(t, f.customer.ID, decimal.NewNullDecimal(decimal.NewFromInt(59600)))

	item, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{QuoteID: uintPtr(q.ID), Quantity: 1})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(59600).Equal(item.UnitPrice))
	assert.Nil(t, item.VariantID)
}

func TestAddCartItem_QuoteIsSingleUnit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.quote(t, f.customer.ID, decimal.NewNullDecimal(decimal.NewFromInt(59600)))

	_, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{QuoteID: uintPtr(q.ID), Quantity: 2})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	item, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{QuoteID: uintPtr(q.ID), Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{QuoteID: uintPtr(q.ID), Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.UpdateCartItem(ctx, f.customer, item.ID, 2)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	c, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(59600).Equal(c.Totals.Total))
}

func TestAddCartItem_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.variant(t, 2, 25000)
	foreign := f.quote(t, f.other.ID, decimal.NewNullDecimal(decimal.NewFromInt(1000)))
	unpriced := f.quote(t, f.customer.ID, decimal.NullDecimal{})

	tests := []struct {
		name string
		req  cart.AddItemRequest
		kind apperror.Kind
	}{
		{"neither reference", cart.AddItemRequest{Quantity: 1}, apperror.KindValidation},
		{"both references", cart.AddItemRequest{VariantID: uintPtr(v.ID), QuoteID: uintPtr(unpriced.ID), Quantity: 1}, apperror.KindValidation},
		{"zero quantity", cart.AddItemRequest{VariantID: uintPtr(v.ID)}, apperror.KindValidation},
		{"unknown variant", cart.AddItemRequest{VariantID: uintPtr(999), Quantity: 1}, apperror.KindNotFound},
		{"more than stock", cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 3}, apperror.KindStockConflict},
		{"foreign quote", cart.AddItemRequest{QuoteID: uintPtr(foreign.ID), Quantity: 1}, apperror.KindAuthorization},
		{"unpriced quote", cart.AddItemRequest{QuoteID: uintPtr(unpriced.ID), Quantity: 1}, apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.AddCartItem(ctx, f.customer, &req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&cart.CartItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddCartItem_InactiveVariant(t *testing.T) {
	f := setup(t)
	v := f.variant(t, 5, 25000)
	require.NoError(t, f.db.Model(&v).Update("is_active", false).Error)

	_, err := f.svc.AddCartItem(context.Background(), f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateCartItem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.variant(t, 5, 1000)

	item, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 1})
	require.NoError(t, err)

	updated, err := f.svc.UpdateCartItem(ctx, f.customer, item.ID, 4)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(updated.Subtotal))

	_, err = f.svc.UpdateCartItem(ctx, f.customer, item.ID, 6)
	assert.True(t, apperror.Is(err, apperror.KindStockConflict))

	_, err = f.svc.UpdateCartItem(ctx, f.customer, item.ID, 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.UpdateCartItem(ctx, f.other, item.ID, 2)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
}

func TestRemoveCartItem_OwnerOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.variant(t, 5, 1000)

	item, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 1})
	require.NoError(t, err)

	err = f.svc.RemoveCartItem(ctx, f.other, item.ID)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	require.NoError(t, f.svc.RemoveCartItem(ctx, f.customer, item.ID))

	err = f.svc.RemoveCartItem(ctx, f.customer, item.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestClearCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.variant(t, 5, 1000)
	q := f.quote(t, f.customer.ID, decimal.NewNullDecimal(decimal.NewFromInt(5000)))

	_, err := f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{VariantID: uintPtr(v.ID), Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddCartItem(ctx, f.customer, &cart.AddItemRequest{QuoteID: uintPtr(q.ID), Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearCart(ctx, f.customer))
	require.NoError(t, f.svc.ClearCart(ctx, f.other))

	c, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}
