package reconcile

import (
	apphttp "innsync_backend/internal/http"

	"github.com/gin-gonic/gin"
)

// Module wires the reconcile HTTP surface. Routes live behind the same
// machine API-key middleware as the intake webhook.
type Module struct {
	handler *Handler
	auth    gin.HandlerFunc
}

// NewModule creates the reconcile module.
func NewModule(handler *Handler, auth gin.HandlerFunc) *Module {
	return &Module{handler: handler, auth: auth}
}

func (m *Module) Name() string { return "reconcile" }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	group := rc.V1.Group("/ota/messages", m.auth)
	group.POST("/:messageId/reconcile", m.handler.Reconcile)
	group.GET("/:messageId/preview", m.handler.Preview)
	group.GET("/:messageId/ledger", m.handler.Ledger)
}
