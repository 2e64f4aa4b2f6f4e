package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by authenticate.
const (
	ctxUserID = "userId"
	ctxRole   = "role"

	accessTokenCookie = "access_token"
)

const (
	errMissingAuthHeader  = "missing Authorization header"
	errBadAuthHeader      = "invalid Authorization header format"
	errInvalidToken       = "invalid or expired token"
	errAccountLocked      = "account locked"
	errInsufficientRights = "insufficient permissions"
	errTooManyRequests    = "too many requests"
)

// bearerToken extracts the access token from the Authorization header,
// falling back to the access_token cookie for browser clients.
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if v, err := c.Cookie(accessTokenCookie); err == nil && v != "" {
			return v, ""
		}
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", errBadAuthHeader
	}
	return strings.TrimSpace(parts[1]), ""
}

func (h *Handler) authenticate(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	claims, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken})
		return
	}

	// the token role may be stale, the principal is current
	p, err := h.services.Principal(c.Request.Context(), claims.UserID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken})
		return
	case err != nil:
		h.logAndAbort(c, "auth_principal_failed", err, "user_id", claims.UserID)
		return
	case p.IsLocked:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAccountLocked})
		return
	}

	// store in Gin context
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, p.Role)
	c.Next()
}

// requireRole lets the request through when the caller holds at least min.
func (h *Handler) requireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentRole(c).AtLeast(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errInsufficientRights})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ctxUserID)
	uid, _ := id.(uuid.UUID)
	return uid
}

func currentRole(c *gin.Context) models.Role {
	v, _ := c.Get(ctxRole)
	r, _ := v.(models.Role)
	return r
}

// rateLimit counts requests per client IP. Limiter errors let the request through.
func (h *Handler) rateLimit(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	key := c.ClientIP()
	allowed, err := h.limiter.Allow(ctx, key)
	if err != nil && h.log != nil {
		h.log.Errorw("ratelimit_unavailable", "err", err, "client_ip", key)
	}
	if allowed {
		c.Next()
		return
	}

	if h.metrics != nil {
		h.metrics.RateLimitedTotal.Inc()
	}
	if d := h.limiter.RetryAfter(ctx, key); d > 0 {
		c.Header("Retry-After", strconv.Itoa(int(d.Round(time.Second).Seconds())))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errTooManyRequests})
}

func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	if h.log == nil {
		return
	}
	h.log.Infow("http_request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start),
		"client_ip", c.ClientIP(),
	)
}

// instrument records request count and latency by route template.
func (h *Handler) instrument(c *gin.Context) {
	if h.metrics == nil {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	h.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	h.metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
}
