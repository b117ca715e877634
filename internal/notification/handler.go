package notification

import (
	"net/http"
	"strconv"

	"innsync_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the notification feed over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates the notification handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListResponse is the paginated notification feed.
type ListResponse struct {
	Items []Notification `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
}

// HandleList returns notifications, newest first.
// GET /api/v1/ota/notifications?propertyId=&page=&pageSize=
func (h *Handler) HandleList(c *gin.Context) {
	propertyID, ok := optionalPropertyID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	items, total, err := h.svc.List(c.Request.Context(), propertyID, page, pageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	if page < 1 {
		page = 1
	}
	httpkit.OK(c, ListResponse{Items: items, Total: total, Page: page})
}

// HandleMarkRead marks one notification read.
// POST /api/v1/ota/notifications/:notificationId/read
func (h *Handler) HandleMarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification ID", nil)
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// HandleMarkAllRead marks all (optionally property-scoped) notifications read.
// POST /api/v1/ota/notifications/read-all?propertyId=
func (h *Handler) HandleMarkAllRead(c *gin.Context) {
	propertyID, ok := optionalPropertyID(c)
	if !ok {
		return
	}
	if err := h.svc.MarkAllRead(c.Request.Context(), propertyID); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notifications marked read"})
}

func optionalPropertyID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("propertyId")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid propertyId", nil)
		return nil, false
	}
	return &id, true
}
