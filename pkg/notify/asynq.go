package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// AsynqConfig configures the Redis-backed dispatcher.
type AsynqConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Queue is the asynq queue events are enqueued on. Default: "lifecycle"
	Queue string

	// MaxRetry is how often consumers may retry delivery. Default: 5
	MaxRetry int

	// Timeout bounds a consumer's processing of one event. Default: 30s
	Timeout time.Duration
}

// AsynqDispatcher enqueues events as asynq tasks. The task type is the
// event type; the payload is the JSON encoded event.
type AsynqDispatcher struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	timeout  time.Duration
}

// NewAsynqDispatcher creates a dispatcher connected to cfg.RedisAddr.
func NewAsynqDispatcher(cfg AsynqConfig) (*AsynqDispatcher, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Queue == "" {
		cfg.Queue = "lifecycle"
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &AsynqDispatcher{
		client:   client,
		queue:    cfg.Queue,
		maxRetry: cfg.MaxRetry,
		timeout:  cfg.Timeout,
	}, nil
}

// NewTask encodes an event as an asynq task.
func NewTask(event Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return asynq.NewTask(string(event.Type), data), nil
}

// Dispatch enqueues the event.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, event Event) error {
	task, err := NewTask(event)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(d.queue),
		asynq.MaxRetry(d.maxRetry),
		asynq.Timeout(d.timeout),
	); err != nil {
		return fmt.Errorf("enqueue %s event: %w", event.Type, err)
	}
	return nil
}

// Close closes the Redis connection.
func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}
