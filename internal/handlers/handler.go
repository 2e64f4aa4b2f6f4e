package handlers

import (
	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/metrics"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/ratelimit"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter

	secureCookies  bool
	trustedProxies []string
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithRateLimiter limits /auth requests per client IP.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithSecureCookies marks the access_token cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.secureCookies = secure }
}

// WithTrustedProxies lists the proxies whose X-Forwarded-For is believed.
// Without it the client IP is always the peer address.
func WithTrustedProxies(proxies []string) Option {
	return func(h *Handler) { h.trustedProxies = proxies }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(h.trustedProxies); err != nil {
		if h.log != nil {
			h.log.Errorw("invalid_trusted_proxies", "proxies", h.trustedProxies, "err", err)
		}
		// fall back to trusting nobody
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), h.requestLogger, h.instrument)

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth", h.rateLimit)
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/refresh", h.refresh)
		auth.POST("/logout", h.logout)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authenticate)
	{
		h.registerUserRoutes(api)
		h.registerAuditRoutes(api)
	}
}

func (h *Handler) registerUserRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("/me", h.getMe)
		users.PATCH("/me", h.updateMe)

		users.GET("", h.requireRole(models.RoleManager), h.listUsers)
		users.GET("/:id", h.requireRole(models.RoleManager), h.getUser)
		users.PATCH("/:id/professional", h.requireRole(models.RoleManager), h.setProfessional)

		users.PATCH("/:id", h.requireRole(models.RoleAdmin), h.updateUser)
		users.POST("/:id/unlock", h.requireRole(models.RoleAdmin), h.unlockUser)
		users.DELETE("/:id", h.requireRole(models.RoleAdmin), h.deleteUser)
	}
}

func (h *Handler) registerAuditRoutes(api *gin.RouterGroup) {
	audit := api.Group("/audit", h.requireRole(models.RoleAdmin))
	{
		audit.GET("", h.getAudit)
		audit.GET("/ws", h.auditStream)
	}
}
