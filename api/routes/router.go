// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"tourhub/internal/bookings"
	"tourhub/internal/cancellation"
	"tourhub/internal/disputes"
	"tourhub/internal/gateway"
	"tourhub/internal/notifications"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/config"
	"tourhub/internal/shared/database"
	"tourhub/internal/shared/idempotency"
	"tourhub/internal/shared/middleware"
	"tourhub/pkg/cache"
	"tourhub/pkg/lock"
	"tourhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	logger *logger.Logger
	guard  *idempotency.Guard
	auth   gin.HandlerFunc

	policyService       policies.Service
	bookingService      bookings.Service
	refundService       refunds.Service
	cancellationService cancellation.Service
	disputeService      disputes.Service
}

// NewRouter wires every feature service. The notifier and dispatcher are
// owned by the caller, which also starts and stops them.
func NewRouter(cfg *config.Config, db *database.DB, notifier notifications.Notifier, dispatcher gateway.Dispatcher, log *logger.Logger) *Router {
	pg := db.GetPostgreSQL()
	transactor := db.Transactor()

	r := &Router{
		config: cfg,
		db:     db,
		logger: log,
		guard:  idempotency.NewGuard(idempotency.NewRepository(pg), cfg.Engine.IdempotencyTTL, log.Logger),
		auth:   middleware.JWTAuthWithConfig(cfg),
	}

	r.policyService = policies.NewService(policies.NewRepository(pg), cache.NewService(db.GetRedis(), log.Logger), cfg.Engine.DefaultTenant, log.Logger)
	r.bookingService = bookings.NewService(bookings.NewRepository(pg))
	r.refundService = refunds.NewService(refunds.NewRepository(pg), dispatcher, notifier, log)
	locker := lock.NewRedisLocker(db.GetRedis())
	if db.GetRedis() != nil {
		if err := locker.PreloadScripts(context.Background()); err != nil {
			log.Warn("failed to preload lock scripts", "error", err)
		}
	}

	r.cancellationService = cancellation.NewService(cancellation.Dependencies{
		Repository: cancellation.NewRepository(pg),
		Bookings:   r.bookingService,
		Policies:   r.policyService,
		Refunds:    r.refundService,
		Transactor: transactor,
		Locker:     locker,
		LockTTL:    cfg.Engine.BookingLockTTL,
		Notifier:   notifier,
		Logger:     log,
	})
	r.disputeService = disputes.NewService(disputes.NewRepository(pg), r.cancellationService, r.refundService, transactor, notifier, log)

	return r
}

// GatewayResultHandler applies gateway results to refunds. It serves both
// the HTTP callback and the Kafka result consumer.
func (r *Router) GatewayResultHandler() gateway.ResultHandler {
	return func(ctx context.Context, result gateway.Result) error {
		_, err := r.refundService.HandleGatewayResult(ctx, result)
		return err
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		policies.SetupPolicyRoutes(api, policies.NewController(r.policyService), r.auth)
		bookings.SetupBookingRoutes(api, bookings.NewController(r.bookingService), r.auth)
		cancellation.SetupCancellationRoutes(api, cancellation.NewController(r.cancellationService, r.guard), r.auth)
		refunds.SetupRefundRoutes(api, refunds.NewController(r.refundService, r.guard), r.auth)
		disputes.SetupDisputeRoutes(api, disputes.NewController(r.disputeService, r.guard), r.auth)
		gateway.SetupGatewayRoutes(api, gateway.NewController(r.GatewayResultHandler()), middleware.GatewaySecret(r.config.Gateway.CallbackSecret))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "tourhub-refunds",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "tourhub-refunds",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}
