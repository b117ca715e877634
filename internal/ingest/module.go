package ingest

import (
	"innsync_backend/internal/events"
	apphttp "innsync_backend/internal/http"
	"innsync_backend/internal/reconcile"
	"innsync_backend/platform/logger"
	"innsync_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the intake bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the intake module.
func NewModule(pool *pgxpool.Pool, msgs MessageWriter, enqueuer reconcile.Enqueuer, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(msgs, enqueuer, eventBus, log)
	handler := NewHandler(service, repo, val)

	return &Module{handler: handler, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// Auth returns the API-key middleware for other machine-facing modules.
func (m *Module) Auth() gin.HandlerFunc {
	return APIKeyAuthMiddleware(m.repo)
}

// RegisterRoutes mounts intake routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	auth := m.Auth()

	ctx.V1.POST("/ota/events", auth, m.handler.HandleOTAEvent)

	// Key management shares the machine credential; the first key is
	// provisioned out of band.
	keys := ctx.V1.Group("/ota/keys", auth)
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
