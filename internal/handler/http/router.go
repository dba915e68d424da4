package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GratienSA/escargotAPI/internal/auth"
	"github.com/GratienSA/escargotAPI/internal/catalog"
	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/service"
	"github.com/GratienSA/escargotAPI/pkg/health"
	"github.com/GratienSA/escargotAPI/pkg/middleware"
)

// catalogCacheSeconds controls browser caching of catalog reads. Product
// data changes rarely compared to cart state.
const catalogCacheSeconds = 60

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	catalogClient *catalog.Client,
	verifier *auth.Verifier,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("escargot"))
	r.Use(middleware.Tracing("escargot-api"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	tokenValidator := verifier.TokenValidator()

	// Cart and favorites endpoints (session scoped, no account needed)
	cartHandler := NewCartHandler(cartService, logger)
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(RequireSessionID)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{productID}", cartHandler.UpdateQuantity)
		r.Delete("/items/{productID}", cartHandler.RemoveItem)

		r.Get("/favorites", cartHandler.GetFavorites)
		r.Delete("/favorites", cartHandler.ClearFavorites)
		r.Post("/favorites/{productID}", cartHandler.ToggleFavorite)
	})

	// Checkout (needs both the session cart and an authenticated user)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(RequireSessionID)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", checkoutHandler.SubmitOrder)
	})

	// Order history (auth required)
	orderHandler := NewOrderHandler(checkoutService, logger)
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", orderHandler.ListOrders)
		r.Get("/{orderID}", orderHandler.GetOrder)
		r.Post("/{orderID}/pay", orderHandler.PayOrder)
	})

	// Catalog reads (public, cacheable)
	catalogHandler := NewCatalogHandler(catalogClient, logger)
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(middleware.CacheControl(catalogCacheSeconds))

		r.Get("/", catalogHandler.ListProducts)
		r.Get("/search", catalogHandler.SearchProducts)
		r.Get("/category/{categoryID}", catalogHandler.ListByCategory)
		r.Get("/{productID}", catalogHandler.GetProduct)
	})
	r.With(middleware.CacheControl(catalogCacheSeconds)).
		Get("/api/v1/categories", catalogHandler.ListCategories)

	// Admin endpoints
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole(domain.RoleAdmin))

		r.Get("/orders", orderHandler.AdminListOrders)
		r.Put("/orders/{orderID}/status", orderHandler.AdminUpdateStatus)

		r.Post("/products", catalogHandler.CreateProduct)
		r.Put("/products/{productID}", catalogHandler.UpdateProduct)
		r.Delete("/products/{productID}", catalogHandler.DeleteProduct)
	})

	return r
}
