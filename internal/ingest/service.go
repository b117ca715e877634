package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"innsync_backend/internal/events"
	"innsync_backend/internal/messages"
	"innsync_backend/internal/reconcile"
	"innsync_backend/platform/logger"
)

// MessageWriter persists inbound source messages.
type MessageWriter interface {
	Upsert(ctx context.Context, m messages.SourceMessage) error
}

// Service accepts one parsed OTA event: it stores the source message
// and hands reconciliation to the queue. Intake never touches bookings.
type Service struct {
	msgs     MessageWriter
	enqueuer reconcile.Enqueuer
	bus      events.Bus
	log      *logger.Logger
}

// NewService creates the intake service.
func NewService(msgs MessageWriter, enqueuer reconcile.Enqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{msgs: msgs, enqueuer: enqueuer, bus: bus, log: log}
}

// AcceptResult reports what intake did with an event.
type AcceptResult struct {
	MessageID string `json:"messageId"`
	Queued    bool   `json:"queued"`
}

// Accept persists the event as a source message and enqueues its
// reconciliation. Redelivery of the same message id refreshes the
// stored payload; the queue task id keeps the work single-flight.
func (s *Service) Accept(ctx context.Context, req OTAEventRequest) (AcceptResult, error) {
	payload, err := json.Marshal(req.EventPayload)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("encode event payload: %w", err)
	}

	msg := messages.SourceMessage{
		ID:           req.MessageID,
		ThreadID:     req.ThreadID,
		Platform:     req.OTAPlatform,
		Subject:      req.Subject,
		Payload:      payload,
		ExtractionID: req.ExtractionID,
	}
	if err := s.msgs.Upsert(ctx, msg); err != nil {
		return AcceptResult{}, fmt.Errorf("store source message: %w", err)
	}

	result := AcceptResult{MessageID: req.MessageID, Queued: true}
	if err := s.enqueuer.EnqueueReconcile(ctx, req.MessageID); err != nil {
		// The message is stored; reconciliation can still be triggered
		// through the synchronous re-run endpoint.
		s.log.Error("failed to enqueue reconcile task", "error", err, "messageId", req.MessageID)
		result.Queued = false
	}

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent: events.NewBaseEvent(),
		MessageID: req.MessageID,
		ThreadID:  req.ThreadID,
		Platform:  req.OTAPlatform,
		EventType: req.EventType,
	})

	return result, nil
}
