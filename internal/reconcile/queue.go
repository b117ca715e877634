package reconcile

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"

	"innsync_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskReconcileMessage asks the worker to reconcile one source message.
const TaskReconcileMessage = "ota.message.reconcile"

// ReconcileMessagePayload carries the task arguments. The event itself
// is not duplicated here; the worker re-reads it from the stored
// source message so a re-run always sees the latest payload.
type ReconcileMessagePayload struct {
	MessageID string `json:"messageId"`
}

// NewReconcileMessageTask builds the asynq task for a message.
func NewReconcileMessageTask(payload ReconcileMessagePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileMessage, data), nil
}

// ParseReconcileMessagePayload decodes the task payload.
func ParseReconcileMessagePayload(task *asynq.Task) (ReconcileMessagePayload, error) {
	var payload ReconcileMessagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReconcileMessagePayload{}, err
	}
	return payload, nil
}

// QueueClient enqueues reconcile tasks onto the shared asynq queue.
type QueueClient struct {
	client *asynq.Client
	queue  string
}

// Enqueuer is the narrow interface intake needs. Satisfied by QueueClient.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, messageID string) error
}

// NewQueueClient creates the asynq client from the redis configuration.
func NewQueueClient(cfg config.QueueConfig) (*QueueClient, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &QueueClient{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

// Close releases the underlying redis connection.
func (c *QueueClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReconcile schedules reconciliation of a message. Task ids are
// derived from the message id so a redelivered webhook while the first
// task is still pending does not enqueue twice.
func (c *QueueClient) EnqueueReconcile(ctx context.Context, messageID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewReconcileMessageTask(ReconcileMessagePayload{MessageID: messageID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("reconcile:"+messageID),
	)
	// asynq wraps the conflict error, so compare with errors.Is.
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

// RedisClientOpt builds the asynq redis options from REDIS_URL,
// honoring TLS settings the same way for client and server.
func RedisClientOpt(cfg config.QueueConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if cfg.GetRedisTLSInsecure() {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if cfg.GetRedisTLSInsecure() {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
