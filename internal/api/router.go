package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/app"
	iauth "github.com/dluzirna/dluzirna/internal/auth"
	"github.com/dluzirna/dluzirna/internal/cache"
	"github.com/dluzirna/dluzirna/internal/handlers"
	"github.com/dluzirna/dluzirna/internal/middleware"
	"github.com/dluzirna/dluzirna/internal/services"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB       *gorm.DB
	Config   *app.Config
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Users    *services.UserService
	Debts    *services.DebtService
	Store    cache.Store
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}
	if deps.Users == nil || deps.Debts == nil {
		return nil, fmt.Errorf("domain services must be provided")
	}
	if deps.Store == nil {
		deps.Store = cache.NewMemoryStore()
	}

	r := gin.New()
	// Unknown paths must always produce the uniform NoRoute 404; the default
	// trailing-slash redirect would answer 301 for anything matching the
	// registered "/:locale/" pattern.
	r.RedirectTrailingSlash = false

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if deps.Config.Throttle.Enabled {
		r.Use(middleware.AdaptiveBlock(deps.Store))
	}

	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", handlers.Health(deps.DB))
	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions)
	publicHandler := handlers.NewPublicDebtHandler(deps.Debts)
	adminHandler := handlers.NewAdminDebtHandler(deps.Debts)
	customerHandler := handlers.NewCustomerDebtHandler(deps.Debts)
	userHandler := handlers.NewUserHandler(deps.Users)

	throttle := func(rule middleware.ThrottleRule) gin.HandlerFunc {
		if !deps.Config.Throttle.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Throttle(deps.Store, rule)
	}

	requireAuth := middleware.Auth(deps.JWT)
	optionalAuth := middleware.OptionalAuth(deps.JWT)
	loadViewer := middleware.LoadViewer(deps.Users)

	// Session endpoints.
	authRoutes := func(auth *gin.RouterGroup) {
		auth.POST("/register", throttle(middleware.RegistrationRule()), authHandler.Register)
		auth.POST("/login", throttle(middleware.LoginRule()), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, loadViewer, authHandler.Me)
	}

	// Admin surface.
	adminRoutes := func(admin *gin.RouterGroup) {
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/pohledavky", adminHandler.List)
		admin.POST("/pohledavky", throttle(middleware.EmailRule()), adminHandler.Create)
		admin.GET("/pohledavky/:id", adminHandler.Get)
		admin.PATCH("/pohledavky/:id", adminHandler.Update)
		admin.DELETE("/pohledavky/:id", adminHandler.Delete)
		admin.PATCH("/pohledavky/:id/send_notification", throttle(middleware.EmailRule()), adminHandler.SendNotification)
		admin.DELETE("/uzivatele/:id", userHandler.Delete)
	}

	// Customer surface: every read is scoped to the viewer.
	customerRoutes := func(customer *gin.RouterGroup) {
		customer.GET("/pohledavky", customerHandler.Index)
		customer.GET("/pohledavky/:id", customerHandler.Show)
	}

	// Locale-prefixed surfaces. The token link is the sole credential on the
	// public view; a logged-in customer is still recognised as owner. All
	// namespaced responses format amounts and dates per the path locale.
	r.GET("/", handlers.RootRedirect)
	locale := r.Group("/:locale", middleware.LocaleParam())
	{
		locale.GET("/", handlers.Homepage)
		locale.GET("/pohledavky/:token",
			throttle(middleware.TokenViewRule()),
			optionalAuth, loadViewer,
			publicHandler.Show,
		)
		authRoutes(locale.Group("/api/auth"))
		adminRoutes(locale.Group("/admin", requireAuth, loadViewer, middleware.RequireAdmin()))
		customerRoutes(locale.Group("/zakaznik", requireAuth, loadViewer, middleware.RequireCustomer()))
	}

	// Locale-less aliases resolve to the default locale.
	authRoutes(r.Group("/api/auth"))
	adminRoutes(r.Group("/api/admin", requireAuth, loadViewer, middleware.RequireAdmin()))
	customerRoutes(r.Group("/api/zakaznik", requireAuth, loadViewer, middleware.RequireCustomer()))

	return r, nil
}
