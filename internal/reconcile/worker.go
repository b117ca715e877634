package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"innsync_backend/internal/messages"
	"innsync_backend/platform/config"
	"innsync_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// MessageLoader loads stored source messages for the worker.
type MessageLoader interface {
	GetByID(ctx context.Context, id string) (messages.SourceMessage, error)
}

// Worker consumes reconcile tasks from the asynq queue.
type Worker struct {
	svc  *Service
	msgs MessageLoader
	log  *logger.Logger
}

// NewWorker creates the task handler set for the queue server.
func NewWorker(svc *Service, msgs MessageLoader, log *logger.Logger) *Worker {
	return &Worker{svc: svc, msgs: msgs, log: log}
}

// Mux returns the asynq route table for this worker.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReconcileMessage, w.HandleReconcileMessage)
	return mux
}

// HandleReconcileMessage loads the stored message, decodes its event
// payload, and runs the reconciliation pipeline. Malformed payloads and
// unknown messages are terminal failures; store errors are retryable.
func (w *Worker) HandleReconcileMessage(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReconcileMessagePayload(task)
	if err != nil {
		return fmt.Errorf("decode task payload: %v: %w", err, asynq.SkipRetry)
	}

	log := w.log.WithMessageID(payload.MessageID)
	ctx = context.WithValue(ctx, logger.MessageIDKey, payload.MessageID)

	msg, err := w.msgs.GetByID(ctx, payload.MessageID)
	if errors.Is(err, messages.ErrMessageNotFound) {
		log.Error("reconcile task for unknown message")
		return fmt.Errorf("message %s not found: %w", payload.MessageID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load message %s: %w", payload.MessageID, err)
	}

	ev, err := decodeStoredEvent(msg)
	if err != nil {
		log.Error("stored payload is not a valid event", "error", err)
		return fmt.Errorf("decode event for %s: %v: %w", payload.MessageID, err, asynq.SkipRetry)
	}

	if _, err := w.svc.Reconcile(ctx, msg.ID, ev); err != nil {
		return fmt.Errorf("reconcile message %s: %w", payload.MessageID, err)
	}
	return nil
}

func decodeStoredEvent(msg messages.SourceMessage) (Event, error) {
	var payload EventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return Event{}, err
	}
	if payload.ExtractionID == nil {
		payload.ExtractionID = msg.ExtractionID
	}
	return payload.ToEvent()
}

// NewQueueServer builds the asynq server consuming the reconcile queue.
func NewQueueServer(cfg config.QueueConfig, log *logger.Logger) (*asynq.Server, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetWorkerConcurrency(),
		Queues:      map[string]int{queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("reconcile task failed", "error", err, "task", task.Type())
		}),
	}), nil
}
