package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/rentorama/rental-api/internal/config"
	"github.com/rentorama/rental-api/internal/handler"
	authhandler "github.com/rentorama/rental-api/internal/handler/auth"
	orderhandler "github.com/rentorama/rental-api/internal/handler/order"
	reservationhandler "github.com/rentorama/rental-api/internal/handler/reservation"
	"github.com/rentorama/rental-api/internal/middleware"
)

func newEngine(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		r.Use(limiter.RateLimit())
	}
	return r
}

// NewPaymentRouter wires the payment service's HTTP surface. The order
// callbacks are public (the gateway redirects the customer's browser there);
// the order lookup requires a service bearer token.
func NewPaymentRouter(
	cfg *config.Config,
	db *sqlx.DB,
	orders *orderhandler.Handler,
	tokens *authhandler.Handler,
	authMW *middleware.AuthMiddleware,
) *gin.Engine {
	r := newEngine(cfg)

	r.GET("/health", handler.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/token", tokens.IssueToken)

		ordersGroup := v1.Group("/orders")
		{
			ordersGroup.POST("/create", orders.CreateOrder)
			ordersGroup.GET("/capture", orders.CaptureOrder)
			ordersGroup.GET("/cancel", orders.CancelOrder)
			ordersGroup.GET("/order/:token", authMW.Authenticate(), orders.GetOrder)
		}
	}

	return r
}

// NewReservationRouter wires the reservation service's HTTP surface.
func NewReservationRouter(
	cfg *config.Config,
	db *sqlx.DB,
	reservations *reservationhandler.Handler,
) *gin.Engine {
	r := newEngine(cfg)

	r.GET("/health", handler.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/reservations/:id", reservations.GetReservation)
		v1.PUT("/reservations/:id/status", reservations.UpdateStatus)
		v1.GET("/models/:id/fully-booked", reservations.FullyBookedDates)
	}

	return r
}
