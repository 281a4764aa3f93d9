package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Omaralyxt/Lumi-Seller/internal/auth"
	"github.com/Omaralyxt/Lumi-Seller/internal/catalog"
	"github.com/Omaralyxt/Lumi-Seller/internal/dashboard"
	"github.com/Omaralyxt/Lumi-Seller/internal/notification"
	"github.com/Omaralyxt/Lumi-Seller/internal/objstore"
	"github.com/Omaralyxt/Lumi-Seller/internal/order"
	"github.com/Omaralyxt/Lumi-Seller/internal/payment"
	"github.com/Omaralyxt/Lumi-Seller/internal/realtime"
	"github.com/Omaralyxt/Lumi-Seller/internal/storefront"
)

type Server struct {
	authSvc         *auth.Service
	stores          *storefront.Service
	catalogSvc      *catalog.Service
	orderSvc        *order.Service
	paymentSvc      *payment.Service
	notificationSvc *notification.Service
	dashboardSvc    *dashboard.Service
	realtimeHandler *realtime.Handler
	objects         objstore.Storage
	webhookSecret   string
	logger          *slog.Logger
	router          chi.Router
}

type Services struct {
	Auth          *auth.Service
	Stores        *storefront.Service
	Catalog       *catalog.Service
	Orders        *order.Service
	Payments      *payment.Service
	Notifications *notification.Service
	Dashboard     *dashboard.Service
	Realtime      *realtime.Handler
	Objects       objstore.Storage
	WebhookSecret string
}

func NewServer(svcs Services, logger *slog.Logger) *Server {
	s := &Server{
		authSvc:         svcs.Auth,
		stores:          svcs.Stores,
		catalogSvc:      svcs.Catalog,
		orderSvc:        svcs.Orders,
		paymentSvc:      svcs.Payments,
		notificationSvc: svcs.Notifications,
		dashboardSvc:    svcs.Dashboard,
		realtimeHandler: svcs.Realtime,
		objects:         svcs.Objects,
		webhookSecret:   svcs.WebhookSecret,
		logger:          logger,
		router:          chi.NewRouter(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	// Public surface: account creation, buyer checkout, the gateway callback.
	r.Post("/api/auth/register", s.register)
	r.Post("/api/auth/login", s.login)
	r.Post("/api/checkout/orders", s.checkout)
	r.Post("/api/payments/mpesa/webhook", s.mpesaWebhook)

	// Seller surface, JWT-guarded.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.authSvc))

		r.Get("/api/profile", s.getProfile)
		r.Put("/api/profile", s.updateProfile)

		r.Get("/api/store", s.getStore)
		r.Put("/api/store", s.updateStore)
		r.Post("/api/store/logo", s.uploadLogo)

		r.Get("/api/products", s.listProducts)
		r.Post("/api/products", s.createProduct)
		r.Get("/api/products/{productID}", s.getProduct)
		r.Put("/api/products/{productID}", s.updateProduct)
		r.Delete("/api/products/{productID}", s.deleteProduct)
		r.Put("/api/products/{productID}/variants", s.replaceVariants)
		r.Post("/api/products/{productID}/images", s.addProductImage)
		r.Delete("/api/products/{productID}/images/{imageID}", s.removeProductImage)

		r.Get("/api/orders", s.listOrders)
		r.Get("/api/orders/{orderID}", s.getOrder)
		r.Post("/api/orders/{orderID}/status", s.updateOrderStatus)
		r.Post("/api/orders/{orderID}/payments/mpesa", s.initiatePayment)

		r.Get("/api/notifications", s.listNotifications)
		r.Post("/api/notifications/{notificationID}/read", s.markNotificationRead)
		r.Post("/api/notifications/read-all", s.markAllNotificationsRead)

		r.Get("/api/dashboard/metrics", s.dashboardMetrics)

		r.Get("/api/realtime/orders", s.realtimeHandler.ServeWS)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storeForRequest maps the authenticated seller to their store, creating the
// default store on first touch. Every seller-scoped handler goes through this
// so a seller can only ever operate on their own rows.
func (s *Server) storeForRequest(r *http.Request) (*storefront.Store, error) {
	sellerID, ok := auth.UserID(r.Context())
	if !ok {
		return nil, errUnauthorized
	}

	profile, err := s.authSvc.GetProfile(r.Context(), sellerID)
	if err != nil {
		return nil, err
	}
	return s.stores.Resolve(r.Context(), sellerID, profile.FirstName)
}

func WithServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server
}
