package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/GHtech935/glampinghub/internal/config"
	"github.com/GHtech935/glampinghub/internal/handler"    // handlers translating HTTP to booking operations
	"github.com/GHtech935/glampinghub/internal/middleware" // JWT session, role gate, cache and rate limit
)

// StaffRoles may read and change bookings.
var StaffRoles = []string{"admin", "owner", "staff"}

// Deps carries what the routes need. Redis may be nil, in which case caching
// and rate limiting are disabled.
type Deps struct {
	DB           *sqlx.DB
	JWTSecret    string
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	Availability *handler.AvailabilityHandler
	Bookings     *handler.BookingHandler
}

// RegisterRoutes registers the health check, which needs no authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
}

// RegisterAvailability registers the unauthenticated availability reads.
// The GET endpoints are served from the Redis response cache. Voucher
// previews are rate-limited per client IP.
func RegisterAvailability(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	g := e.Group("/v1")
	g.GET("/units/:id/availability", d.Availability.Check, cache)
	g.GET("/units/:id/calendar", d.Availability.Calendar, cache)
	g.POST("/availability/batch", d.Availability.Batch)
	g.POST("/vouchers/validate", d.Availability.PreviewVoucher, middleware.NewTokenBucket(PublicRateLimit(d.RateLimit), d.Redis))
}

// PublicRateLimit keys the bucket by client IP, since anonymous callers have
// no user to key on.
func PublicRateLimit(cfg config.RateLimitConfig) config.RateLimitConfig {
	cfg.KeyStrategy = "ip"
	return cfg
}

// RegisterBookings registers the booking endpoints. All of them require a
// staff session; writes are rate-limited and invalidate cached availability.
func RegisterBookings(e *echo.Echo, d Deps) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(StaffRoles...))
	g.GET("/:id", d.Bookings.Get)
	g.GET("/:id/payment-info", d.Bookings.PaymentInfo)

	w := g.Group("", middleware.NewTokenBucket(d.RateLimit, d.Redis), middleware.InvalidateOnWrite(d.Cache, d.Redis))
	w.POST("", d.Bookings.Create)
	w.POST("/:id/menu-items", d.Bookings.AddMenuItem)
	w.DELETE("/:id/menu-items/:itemId", d.Bookings.RemoveMenuItem)
	w.PUT("/:id/tax-invoice", d.Bookings.SetTaxInvoice)
	w.PUT("/:id/stay-dates", d.Bookings.ChangeStayDates)
	w.POST("/:id/payments", d.Bookings.RecordPayment)
	w.DELETE("/:id/payments/:paymentId", d.Bookings.DeletePayment)
	w.PUT("/:id/status", d.Bookings.UpdateStatus)
	w.PUT("/:id/payment-status", d.Bookings.UpdatePaymentStatus)
	w.POST("/:id/recalculate", d.Bookings.Recalculate)
	w.POST("/:id/expire", d.Bookings.Expire)
}

// Register wires every route group.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAvailability(e, d)
	RegisterBookings(e, d)
}
