package reconcile

import (
	"errors"
	"net/http"

	"innsync_backend/internal/messages"
	"innsync_backend/platform/apperr"
	"innsync_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the reconciliation surface over HTTP: a synchronous
// re-run endpoint, a write-free preview, and ledger lookups.
type Handler struct {
	svc    *Service
	msgs   MessageLoader
	ledger LedgerStore
}

// NewHandler creates the reconcile HTTP handler.
func NewHandler(svc *Service, msgs MessageLoader, ledger LedgerStore) *Handler {
	return &Handler{svc: svc, msgs: msgs, ledger: ledger}
}

// Reconcile handles POST /ota/messages/:messageId/reconcile. It re-runs
// the pipeline against the stored payload; safe to call repeatedly.
func (h *Handler) Reconcile(c *gin.Context) {
	ev, msg, ok := h.loadEvent(c)
	if !ok {
		return
	}

	out, err := h.svc.Reconcile(c.Request.Context(), msg.ID, ev)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "reconciliation failed", err))
		return
	}
	httpkit.JSON(c, http.StatusOK, out)
}

// Preview handles GET /ota/messages/:messageId/preview. An optional
// propertyId query parameter overrides hint-based resolution.
func (h *Handler) Preview(c *gin.Context) {
	ev, msg, ok := h.loadEvent(c)
	if !ok {
		return
	}

	propertyID := uuid.Nil
	if raw := c.Query("propertyId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid propertyId"))
			return
		}
		propertyID = parsed
	}

	result, err := h.svc.Preview(c.Request.Context(), msg.ID, ev, propertyID)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "preview failed", err))
		return
	}
	httpkit.JSON(c, http.StatusOK, result)
}

// Ledger handles GET /ota/messages/:messageId/ledger.
func (h *Handler) Ledger(c *gin.Context) {
	messageID := c.Param("messageId")
	entry, err := h.ledger.GetByMessageID(c.Request.Context(), messageID)
	if errors.Is(err, ErrLedgerEntryNotFound) {
		httpkit.HandleError(c, apperr.NotFound("no ledger entry for message"))
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "ledger lookup failed", err))
		return
	}
	httpkit.JSON(c, http.StatusOK, toLedgerResponse(entry))
}

func (h *Handler) loadEvent(c *gin.Context) (Event, messages.SourceMessage, bool) {
	messageID := c.Param("messageId")

	msg, err := h.msgs.GetByID(c.Request.Context(), messageID)
	if errors.Is(err, messages.ErrMessageNotFound) {
		httpkit.HandleError(c, apperr.NotFound("source message not found"))
		return Event{}, messages.SourceMessage{}, false
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "message lookup failed", err))
		return Event{}, messages.SourceMessage{}, false
	}

	ev, err := decodeStoredEvent(msg)
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("stored payload is not a valid event"))
		return Event{}, messages.SourceMessage{}, false
	}
	return ev, msg, true
}

// LedgerResponse is the wire form of an import ledger row.
type LedgerResponse struct {
	MessageID    string       `json:"messageId"`
	ExtractionID *uuid.UUID   `json:"extractionId,omitempty"`
	PropertyID   *uuid.UUID   `json:"propertyId,omitempty"`
	EventType    EventType    `json:"eventType"`
	Decision     Decision     `json:"decision"`
	BookingID    *uuid.UUID   `json:"bookingId,omitempty"`
	ImportErrors *ImportError `json:"importErrors,omitempty"`
	ProcessedAt  string       `json:"processedAt"`
	ProcessedBy  string       `json:"processedBy"`
}

func toLedgerResponse(entry LedgerEntry) LedgerResponse {
	return LedgerResponse{
		MessageID:    entry.MessageID,
		ExtractionID: entry.ExtractionID,
		PropertyID:   entry.PropertyID,
		EventType:    entry.EventType,
		Decision:     entry.Decision,
		BookingID:    entry.BookingID,
		ImportErrors: entry.ImportErrors,
		ProcessedAt:  entry.ProcessedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		ProcessedBy:  entry.ProcessedBy,
	}
}
