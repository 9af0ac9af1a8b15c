// Package sync propagates cache invalidations between instances over Redis
// Pub/Sub. Delivery is fire-and-forget: instances that miss a message
// converge again when their local entries expire.
package sync

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/layercache/layercache/types"
)

// InvalidationMessage is an alias for types.InvalidationMessage.
type InvalidationMessage = types.InvalidationMessage

// Logger matches the cache package's logger interface, redeclared here to
// avoid an import cycle.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// PubSub publishes and receives invalidation messages on a Redis channel.
// Messages published by this instance are recognized by their source ID and
// dropped, so an instance never invalidates its own fresh writes.
type PubSub struct {
	client         *redis.Client
	channel        string
	instanceID     string
	logger         Logger
	pubsub         *redis.PubSub
	callbacks      []func(msg InvalidationMessage)
	callbacksMutex sync.RWMutex
	done           chan struct{}
	wg             sync.WaitGroup
	closed         int32
}

// NewPubSub creates a synchronizer on channel. The client is shared with the
// caller and not closed by PubSub.Close.
func NewPubSub(client *redis.Client, channel, instanceID string, logger Logger) *PubSub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &PubSub{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Subscribe starts listening for invalidation messages. It returns once the
// subscription is confirmed by the server, so messages published after it
// returns are guaranteed to be observed.
func (ps *PubSub) Subscribe(ctx context.Context) error {
	ps.pubsub = ps.client.Subscribe(ctx, ps.channel)
	if _, err := ps.pubsub.Receive(ctx); err != nil {
		ps.pubsub.Close()
		ps.pubsub = nil
		return err
	}

	ps.wg.Add(1)
	go ps.listen()

	return nil
}

// Publish sends an invalidation message to every subscribed instance,
// including this one.
func (ps *PubSub) Publish(ctx context.Context, msg InvalidationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.client.Publish(ctx, ps.channel, data).Err()
}

// OnInvalidate registers a callback invoked for every message that
// originates from another instance. Callbacks run on the listener
// goroutine and must not block.
func (ps *PubSub) OnInvalidate(callback func(msg InvalidationMessage)) {
	ps.callbacksMutex.Lock()
	defer ps.callbacksMutex.Unlock()
	ps.callbacks = append(ps.callbacks, callback)
}

// Close stops the listener and closes the subscription. Safe to call more
// than once. The shared client is left open.
func (ps *PubSub) Close() error {
	if !atomic.CompareAndSwapInt32(&ps.closed, 0, 1) {
		return nil
	}
	close(ps.done)

	var err error
	if ps.pubsub != nil {
		// Closing the subscription unblocks a listener stuck in a receive.
		err = ps.pubsub.Close()
	}
	ps.wg.Wait()
	return err
}

func (ps *PubSub) listen() {
	defer ps.wg.Done()

	ch := ps.pubsub.Channel()

	for {
		select {
		case <-ps.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				ps.logger.Warn("dropping malformed invalidation message", "payload", msg.Payload, "error", err)
				continue
			}

			// Don't invalidate your own writes.
			if event.SourceID == ps.instanceID {
				continue
			}

			ps.callbacksMutex.RLock()
			callbacks := ps.callbacks
			ps.callbacksMutex.RUnlock()

			for _, callback := range callbacks {
				callback(event)
			}
		}
	}
}
