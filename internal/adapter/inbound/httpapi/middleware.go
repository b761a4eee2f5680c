package httpapi

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/collectfs/collectfs/internal/service"
)

// principalLocal is the fiber locals key the auth middleware stores the
// verified subject under.
const principalLocal = "principal"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectfs_http_requests_total",
		Help: "HTTP requests served, labeled by route pattern.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectfs_http_request_duration_seconds",
		Help:    "HTTP request duration, labeled by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// metricsMiddleware records request counts and durations. The route
// pattern is used as the path label, so record ids never explode the
// metric cardinality.
func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if ferr, ok := err.(*fiber.Error); ok {
			status = ferr.Code
		}

		path := c.Route().Path
		httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// authMiddleware verifies bearer tokens signed with the shared secret
// and stores the subject for the handlers. Requests without a token
// continue as anonymous; a present but invalid token is rejected.
func authMiddleware(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header must be Bearer <token>",
			})
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims,
			func(*jwt.Token) (interface{}, error) { return key, nil },
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		)
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has no subject",
			})
		}

		c.Locals(principalLocal, subject)
		return c.Next()
	}
}

// anonymousMiddleware names callers no token identified, so access
// rules can grant a deployment-chosen anonymous principal.
func anonymousMiddleware(principal string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(principalLocal) == nil {
			c.Locals(principalLocal, principal)
		}
		return c.Next()
	}
}

// requestCtx returns the request context carrying the caller's principal
// when the middleware established one.
func requestCtx(c *fiber.Ctx) context.Context {
	ctx := c.Context()
	if principal, ok := c.Locals(principalLocal).(string); ok && principal != "" {
		return service.WithPrincipal(ctx, principal)
	}
	return ctx
}
