package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/cart"
	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/production"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/infrastructure/database/postgres"
	"github.com/neonarte/neon-backend/internal/infrastructure/storage"
	apihttp "github.com/neonarte/neon-backend/internal/interfaces/http"
	"github.com/neonarte/neon-backend/internal/interfaces/http/handlers"
	"github.com/neonarte/neon-backend/internal/interfaces/http/routes"
	"github.com/neonarte/neon-backend/internal/pkg/auth"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Silence()
}

type cannedOracle struct{ narrative string }

func (o cannedOracle) Estimate(context.Context, quote.OracleRequest) (*quote.OracleResponse, error) {
	return &quote.OracleResponse{Narrative: o.narrative, Raw: o.narrative}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []quote.ConfirmationNotice
}

func (n *recordingNotifier) QuoteAwaitingConfirmation(_ context.Context, notice quote.ConfirmationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

type fakeDocuments struct{}

func (fakeDocuments) GenerateInvoice(o *order.Order) ([]byte, error) {
	return []byte("%PDF-invoice-" + o.OrderNumber), nil
}

func (fakeDocuments) GenerateQuoteSheet(q *quote.Quote) ([]byte, error) {
	return []byte(fmt.Sprintf("%%PDF-quote-%d", q.ID)), nil
}

type apiTest struct {
	t        *testing.T
	db       *gorm.DB
	router   http.Handler
	jwt      *auth.JWTManager
	notifier *recordingNotifier
}

func newAPITest(t *testing.T) *apiTest {
	cfg := testutil.Config()
	cfg.External.Storage.LocalPath = t.TempDir()
	cfg.External.Storage.PublicPath = "/uploads"
	cfg.Security.CORSAllowedOrigins = []string{"http://localhost:3000"}

	db := testutil.NewDB(t, postgres.Models()...)
	notifier := &recordingNotifier{}
	docs := fakeDocuments{}
	quoteImages := storage.NewLocalStore(cfg, "quotes")

	reconciler := inventory.NewReconciler()
	productService := product.NewService(db)
	productionService := production.NewService(db, reconciler)
	quoteService := quote.NewService(db, cfg, cannedOracle{narrative: "Neón y fuente...\nTOTAL: $59.600,00 ARS"}, notifier, quoteImages, productService)
	orderService := order.NewService(db, reconciler)

	server := apihttp.NewServer(cfg, db, nil, routes.Handlers{
		Auth:       handlers.NewAuthHandler(user.NewService(db, cfg)),
		Quotes:     handlers.NewQuoteHandler(quoteService, docs),
		Uploads:    handlers.NewUploadHandler(storage.NewLocalStore(cfg, "products"), quoteImages, quoteService),
		Products:   handlers.NewProductHandler(productService, inventory.NewService(db, reconciler), productionService),
		Production: handlers.NewProductionHandler(productionService),
		Cart:       handlers.NewCartHandler(cart.NewService(db)),
		Orders:     handlers.NewOrderHandler(orderService),
		Invoices:   handlers.NewInvoiceHandler(orderService, docs, cfg),
		Admin:      handlers.NewUserAdminHandler(user.NewAdminService(db, cfg)),
	})

	return &apiTest{t: t, db: db, router: server.Router(), jwt: auth.NewJWTManager(cfg), notifier: notifier}
}

// account creates a user directly and returns its bearer header
func (a *apiTest) account(email string, role user.Role) (user.User, string) {
	u := user.User{Name: email, Email: email, Password: "x", Role: role, IsActive: true}
	require.NoError(a.t, a.db.Create(&u).Error)
	tok, err := a.jwt.GenerateAccessToken(u.ID, u.Email, string(role))
	require.NoError(a.t, err)
	return u, "Bearer " + tok
}

func (a *apiTest) variant(stock int, price int64) product.ProductVariant {
	p := product.Product{Type: product.TypeProduct, Name: "Cartel Bar", IsActive: true, Price: decimal.NewNullDecimal(decimal.NewFromInt(price))}
	require.NoError(a.t, a.db.Create(&p).Error)
	v := product.ProductVariant{ProductID: p.ID, Color: "rosa", Quantity: stock, Price: decimal.NewNullDecimal(decimal.NewFromInt(price)), IsActive: true}
	require.NoError(a.t, a.db.Create(&v).Error)
	return v
}

func (a *apiTest) request(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiTest) multipart(path, bearer string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "diseño.png")
		require.NoError(a.t, err)
		_, err = fw.Write(image)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

type okBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) errBody {
	var e errBody
	decode(t, w, &e)
	return e
}

func TestHealthAndReady(t *testing.T) {
	api := newAPITest(t)

	w := api.request(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = api.request(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uptime"`)
}

func TestRegisterLoginProfile(t *testing.T) {
	api := newAPITest(t)

	w := api.request(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "neon2024", "confirm_password": "neon2024",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ok okBody
	decode(t, w, &ok)
	var registered user.AuthResponse
	require.NoError(t, json.Unmarshal(ok.Data, &registered))
	assert.Equal(t, user.RoleUsuario, registered.User.Role)
	require.NotEmpty(t, registered.AccessToken)

	w = api.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ana@example.com", "password": "neon2024"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.request(http.MethodGet, "/api/v1/auth/profile", "Bearer "+registered.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_ValidationEnvelope(t *testing.T) {
	api := newAPITest(t)

	w := api.request(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "neon2024", "confirm_password": "otra2024",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e := errorOf(t, w)
	assert.Equal(t, "validation_error", e.Error.Code)
	assert.Contains(t, e.Error.Fields, "confirm_password")

	w = api.request(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"name": "Ana"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e = errorOf(t, w)
	assert.Contains(t, e.Error.Fields, "email")

	w = api.request(http.MethodPost, "/api/v1/auth/register", "", `{"name":`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, errorOf(t, w).Error.Fields, "body")
}

func TestRoleGuards(t *testing.T) {
	api := newAPITest(t)
	_, customer := api.account("cliente@example.com", user.RoleUsuario)
	_, staff := api.account("taller@example.com", user.RoleEmpleado)
	_, admin := api.account("dueno@example.com", user.RoleSuperadmin)

	cases := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"anonymous orders", http.MethodGet, "/api/v1/orders", "", http.StatusUnauthorized},
		{"anonymous catalog", http.MethodGet, "/api/v1/products", "", http.StatusOK},
		{"customer batches", http.MethodGet, "/api/v1/production-batches", customer, http.StatusForbidden},
		{"staff batches", http.MethodGet, "/api/v1/production-batches", staff, http.StatusOK},
		{"customer raw materials", http.MethodGet, "/api/v1/products/raw-materials", customer, http.StatusForbidden},
		{"staff admin users", http.MethodGet, "/api/v1/admin/users", staff, http.StatusForbidden},
		{"admin users", http.MethodGet, "/api/v1/admin/users", admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := api.request(tc.method, tc.path, tc.bearer, nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "authorization_error", errorOf(t, w).Error.Code)
			}
		})
	}
}

func TestCartCheckoutFlow(t *testing.T) {
	api := newAPITest(t)
	_, ana := api.account("ana@example.com", user.RoleUsuario)
	_, beto := api.account("beto@example.com", user.RoleUsuario)
	v := api.variant(1, 25000)

	w := api.request(http.MethodPost, "/api/v1/cart/items", ana, map[string]interface{}{"variant_id": v.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.request(http.MethodPost, "/api/v1/orders/checkout", ana, map[string]string{"payment_method": "transferencia"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ok okBody
	decode(t, w, &ok)
	var result order.CheckoutResult
	require.NoError(t, json.Unmarshal(ok.Data, &result))
	assert.True(t, result.Total.Equal(decimal.NewFromInt(25000)), result.Total.String())

	// The cart was emptied by the checkout.
	w = api.request(http.MethodGet, "/api/v1/cart", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cartBody okBody
	decode(t, w, &cartBody)
	var c cart.CartResponse
	require.NoError(t, json.Unmarshal(cartBody.Data, &c))
	assert.Empty(t, c.Items)

	// The last unit is gone.
	w = api.request(http.MethodPost, "/api/v1/orders/checkout", beto, map[string]interface{}{
		"payment_method": "efectivo",
		"items":          []map[string]interface{}{{"variant_id": v.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "stock_conflict", errorOf(t, w).Error.Code)

	// Orders are private to their owner.
	path := fmt.Sprintf("/api/v1/orders/%d", result.OrderID)
	assert.Equal(t, http.StatusOK, api.request(http.MethodGet, path, ana, nil).Code)
	w = api.request(http.MethodGet, path, beto, nil)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, w.Code)

	w = api.request(http.MethodGet, path+"/invoice", ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), result.OrderNumber)
}

func TestSubmitQuote_MultipartValidation(t *testing.T) {
	api := newAPITest(t)
	_, ana := api.account("ana@example.com", user.RoleUsuario)

	w := api.multipart("/api/v1/quotes", ana, map[string]string{"height_cm": "alto", "color": "rosa"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	fields := errorOf(t, w).Error.Fields
	for _, f := range []string{"height_cm", "width_cm", "quantity", "image"} {
		assert.Contains(t, fields, f)
	}
}

func TestQuoteLifecycle(t *testing.T) {
	api := newAPITest(t)
	_, ana := api.account("ana@example.com", user.RoleUsuario)
	_, staff := api.account("taller@example.com", user.RoleEmpleado)

	w := api.multipart("/api/v1/quotes", ana, map[string]string{
		"height_cm": "50", "width_cm": "30", "color": "rosa", "quantity": "2",
	}, pngBytes(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ok okBody
	decode(t, w, &ok)
	var submitted quote.SubmitResult
	require.NoError(t, json.Unmarshal(ok.Data, &submitted))
	require.True(t, submitted.EstimatedPrice.Valid)
	assert.True(t, submitted.EstimatedPrice.Decimal.Equal(decimal.NewFromInt(59600)))

	statusPath := fmt.Sprintf("/api/v1/quotes/%d/status", submitted.QuoteID)
	w = api.request(http.MethodPatch, statusPath, ana, map[string]string{"status": "esperando_confirmacion"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	for i := 0; i < 2; i++ {
		w = api.request(http.MethodPatch, statusPath, staff, map[string]string{"status": "esperando_confirmacion"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Len(t, api.notifier.notices, 1)
	assert.Equal(t, "ana@example.com", api.notifier.notices[0].Email)

	w = api.request(http.MethodPatch, statusPath, staff, map[string]string{"status": "volando"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.request(http.MethodGet, fmt.Sprintf("/api/v1/quotes/%d/pdf", submitted.QuoteID), ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = api.request(http.MethodGet, fmt.Sprintf("/api/v1/quotes/%d/image", submitted.QuoteID), ana, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A priced quote can be bought through the cart.
	w = api.request(http.MethodPost, "/api/v1/orders/checkout", ana, map[string]interface{}{
		"payment_method": "transferencia",
		"items":          []map[string]interface{}{{"quote_id": submitted.QuoteID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.request(http.MethodPost, "/api/v1/orders/checkout", ana, map[string]interface{}{
		"payment_method": "transferencia",
		"items":          []map[string]interface{}{{"quote_id": submitted.QuoteID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "conflict", errorOf(t, w).Error.Code)
}

func TestGetProduct_RawMaterialHiddenFromCustomers(t *testing.T) {
	api := newAPITest(t)
	_, customer := api.account("cliente@example.com", user.RoleUsuario)
	_, staff := api.account("taller@example.com", user.RoleEmpleado)

	rm := product.Product{
		Type:       product.TypeRawMaterial,
		Name:       "Tira Neón",
		Unit:       "m",
		IsActive:   true,
		Cost:       decimal.NewNullDecimal(decimal.NewFromInt(4000)),
		FinalPrice: decimal.NewNullDecimal(decimal.NewFromInt(6000)),
	}
	require.NoError(t, api.db.Create(&rm).Error)
	sign := api.variant(3, 25000)
	path := fmt.Sprintf("/api/v1/products/%d", rm.ID)

	for _, bearer := range []string{"", customer} {
		w := api.request(http.MethodGet, path, bearer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotContains(t, w.Body.String(), "4000")
	}

	w := api.request(http.MethodGet, path, staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"unit":"m"`)

	w = api.request(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", sign.ProductID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUnknownQuoteIs404(t *testing.T) {
	api := newAPITest(t)
	_, ana := api.account("ana@example.com", user.RoleUsuario)

	w := api.request(http.MethodGet, "/api/v1/quotes/999", ana, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorOf(t, w).Error.Code)

	w = api.request(http.MethodGet, "/api/v1/quotes/abc", ana, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
