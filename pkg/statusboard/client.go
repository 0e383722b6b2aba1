package statusboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/cuebridge/internal/state"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the status board.
// It is safe for concurrent use.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a status board client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(url, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewClient(opts, instanceName)
}

// Instance returns the instance name keys are namespaced with.
func (c *Client) Instance() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Publish stores snap as the latest status and publishes it on the
// instance's status channel.
func (c *Client) Publish(ctx context.Context, snap state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.rdb.Set(ctx, StatusKey(c.instanceName), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write status to Redis: %w", err)
	}

	if err := c.rdb.Publish(ctx, StatusEventsChannel(c.instanceName), data).Err(); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}

	return nil
}

// GetStatus reads the latest published snapshot.
// Returns redis.Nil when nothing has been published; use IsNotFound.
func (c *Client) GetStatus(ctx context.Context) (state.Snapshot, error) {
	var snap state.Snapshot

	data, err := c.rdb.Get(ctx, StatusKey(c.instanceName)).Bytes()
	if err != nil {
		if IsNotFound(err) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to read status from Redis: %w", err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return snap, nil
}

// Subscription is an active subscription to status events.
// Caller must call Close when done.
type Subscription struct {
	events <-chan state.Snapshot
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of published snapshots. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan state.Snapshot {
	return s.events
}

// Errors returns non-fatal decode errors. Undecodable messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeStatus subscribes to status events for this instance. The
// subscription is confirmed before returning, so snapshots published after
// this call are delivered.
func (c *Client) SubscribeStatus(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, StatusEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to status events: %w", err)
	}

	eventsChan := make(chan state.Snapshot, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var snap state.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal status event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- snap:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound reports whether err is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
