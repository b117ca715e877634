package reconcile

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type testQueueConfig struct {
	redisURL string
}

func (c testQueueConfig) GetRedisURL() string       { return c.redisURL }
func (c testQueueConfig) GetRedisTLSInsecure() bool { return false }
func (c testQueueConfig) GetAsynqQueueName() string { return "reconcile" }
func (c testQueueConfig) GetWorkerConcurrency() int { return 1 }

func TestEnqueueReconcileDeduplicatesByMessageID(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewQueueClient(testQueueConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewQueueClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueReconcile(ctx, "msg-1"); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// A redelivered webhook enqueues the same message id again; the
	// task-id conflict is swallowed so intake stays 202.
	if err := client.EnqueueReconcile(ctx, "msg-1"); err != nil {
		t.Fatalf("duplicate enqueue must not error: %v", err)
	}
}

func TestRedisClientOptRejectsMissingURL(t *testing.T) {
	if _, err := RedisClientOpt(testQueueConfig{}); err == nil {
		t.Fatal("expected an error without REDIS_URL")
	}
}

func TestParseReconcileMessagePayloadRoundTrip(t *testing.T) {
	task, err := NewReconcileMessageTask(ReconcileMessagePayload{MessageID: "msg-42"})
	if err != nil {
		t.Fatalf("NewReconcileMessageTask: %v", err)
	}
	if task.Type() != TaskReconcileMessage {
		t.Errorf("task type = %q, want %q", task.Type(), TaskReconcileMessage)
	}
	payload, err := ParseReconcileMessagePayload(task)
	if err != nil {
		t.Fatalf("ParseReconcileMessagePayload: %v", err)
	}
	if payload.MessageID != "msg-42" {
		t.Errorf("messageId = %q, want msg-42", payload.MessageID)
	}
}
