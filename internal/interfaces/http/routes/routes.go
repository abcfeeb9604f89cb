// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/interfaces/http/handlers"
	"github.com/neonarte/neon-backend/internal/interfaces/http/middleware"
)

// Handlers groups every HTTP handler the API exposes
type Handlers struct {
	Auth       *handlers.AuthHandler
	Quotes     *handlers.QuoteHandler
	Uploads    *handlers.UploadHandler
	Products   *handlers.ProductHandler
	Production *handlers.ProductionHandler
	Cart       *handlers.CartHandler
	Orders     *handlers.OrderHandler
	Invoices   *handlers.InvoiceHandler
	Admin      *handlers.UserAdminHandler
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", h.Auth.GetProfile)
			protected.PUT("/details", h.Auth.SaveDetails)
		}
	}
}

// SetupQuoteRoutes sets up custom sign quote routes
func SetupQuoteRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	quotes := rg.Group("/quotes")
	quotes.Use(middleware.AuthMiddleware(cfg))
	{
		quotes.POST("", h.Quotes.SubmitQuote)
		quotes.GET("", h.Quotes.ListQuotes)
		quotes.GET("/:id", h.Quotes.GetQuote)
		quotes.GET("/:id/pdf", h.Quotes.DownloadQuote)
		quotes.GET("/:id/image", h.Uploads.GetQuoteImage)
		quotes.PATCH("/:id", h.Quotes.UpdateQuote)
		quotes.DELETE("/:id", h.Quotes.DeleteQuote)
		quotes.PATCH("/:id/status", middleware.RequireRole(user.RoleEmpleado), h.Quotes.UpdateQuoteStatus)
	}
}

// SetupProductRoutes sets up catalog and stock routes
func SetupProductRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	products := rg.Group("/products")
	{
		public := products.Group("")
		public.Use(middleware.OptionalAuthMiddleware(cfg))
		{
			public.GET("", h.Products.GetProducts)
			public.GET("/predefined", h.Products.GetPredefined)
			public.GET("/:id", h.Products.GetProduct)
		}

		staff := products.Group("")
		staff.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(user.RoleEmpleado))
		{
			staff.GET("/raw-materials", h.Products.GetRawMaterials)
			staff.GET("/stock", h.Products.GetStock)
			staff.POST("", h.Products.CreateProduct)
			staff.POST("/images", h.Uploads.UploadProductImage)
			staff.PUT("/:id", h.Products.UpdateProduct)
			staff.DELETE("/:id", h.Products.DeleteProduct)
			staff.POST("/:id/add-stock", h.Products.AddStock)
			staff.GET("/:id/movements", h.Products.GetMovements)
		}
	}
}

// SetupProductionRoutes sets up production batch routes
func SetupProductionRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	batches := rg.Group("/production-batches")
	batches.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(user.RoleEmpleado))
	{
		batches.GET("", h.Production.ListBatches)
		batches.POST("", h.Production.CreateBatch)
		batches.PUT("/:id", h.Production.UpdateBatch)
	}
}

// SetupOrderRoutes sets up cart and order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	cart := rg.Group("/cart")
	cart.Use(middleware.AuthMiddleware(cfg))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:id", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:id", h.Cart.RemoveFromCart)
		cart.DELETE("", h.Cart.ClearCart)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("/checkout", h.Orders.Checkout)
		orders.GET("", h.Orders.GetOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PATCH("/:id/status", h.Orders.UpdateOrderStatus)
		orders.GET("/:id/invoice", h.Invoices.GenerateInvoice)
		orders.GET("/:id/invoice/data", h.Invoices.GetInvoiceData)
	}
}

// SetupAdminRoutes sets up superadmin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(user.RoleSuperadmin))
	{
		admin.GET("/users", h.Admin.GetUsers)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.PATCH("/users/:id/role", h.Admin.UpdateUserRole)
	}
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	SetupAuthRoutes(rg, h, cfg)
	SetupQuoteRoutes(rg, h, cfg)
	SetupProductRoutes(rg, h, cfg)
	SetupProductionRoutes(rg, h, cfg)
	SetupOrderRoutes(rg, h, cfg)
	SetupAdminRoutes(rg, h, cfg)
}
