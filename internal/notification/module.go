package notification

import (
	"innsync_backend/internal/email"
	"innsync_backend/internal/events"
	apphttp "innsync_backend/internal/http"
	"innsync_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	auth    gin.HandlerFunc
}

// NewModule creates the notification module and subscribes it to
// reconciliation events. sender may be nil when email is disabled.
func NewModule(pool *pgxpool.Pool, sender email.Sender, alertTo string, eventBus events.Bus, auth gin.HandlerFunc, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, sender, alertTo, log)
	RegisterHandlers(eventBus, service)

	return &Module{
		handler: NewHandler(service),
		service: service,
		auth:    auth,
	}
}

// Service exposes the notifier for other composition-time consumers.
func (m *Module) Service() *Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the notification feed routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/ota/notifications", m.auth)
	group.GET("", m.handler.HandleList)
	group.POST("/read-all", m.handler.HandleMarkAllRead)
	group.POST("/:notificationId/read", m.handler.HandleMarkRead)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
