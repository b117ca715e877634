package ingest

import (
	"net/http"

	"innsync_backend/internal/reconcile"
	"innsync_backend/platform/httpkit"
	"innsync_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeFormat = "2006-01-02T15:04:05Z"

// OTAEventRequest is the intake request body: message envelope plus the
// parsed booking event.
type OTAEventRequest struct {
	reconcile.EventPayload
	MessageID string `json:"messageId" validate:"required,max=200"`
	ThreadID  string `json:"threadId" validate:"max=200"`
	Subject   string `json:"subject" validate:"max=500"`
}

// Handler handles intake HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	val     *validator.Validator
}

// NewHandler creates a new intake handler.
func NewHandler(service *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, val: val}
}

// HandleOTAEvent accepts one parsed OTA booking event.
// POST /api/v1/ota/events
// Authenticated via X-OTA-API-Key header (checked by middleware).
func (h *Handler) HandleOTAEvent(c *gin.Context) {
	var req OTAEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}
	// Dates are validated up front so a malformed payload fails the
	// request instead of poisoning the queue.
	if _, err := req.EventPayload.ToEvent(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid stay dates", err.Error())
		return
	}

	result, err := h.service.Accept(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// ---- API key management ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	KeyPrefix  string    `json:"keyPrefix"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  string    `json:"createdAt"`
	LastUsedAt string    `json:"lastUsedAt,omitempty"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"` // plaintext, shown only once
}

// HandleCreateAPIKey creates a new intake API key.
// POST /api/v1/ota/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), req.Name, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists all intake API keys.
// GET /api/v1/ota/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		result[i] = toAPIKeyResponse(k)
	}
	httpkit.OK(c, result)
}

// HandleRevokeAPIKey deactivates an intake API key.
// DELETE /api/v1/ota/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	resp := APIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt.UTC().Format(timeFormat),
	}
	if key.LastUsedAt != nil {
		resp.LastUsedAt = key.LastUsedAt.UTC().Format(timeFormat)
	}
	return resp
}
