package sync

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/layercache/layercache/types"
)

func newSyncClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewPubSub(t *testing.T) {
	client := newSyncClient(t)

	ps := NewPubSub(client, "test-channel", "pod-1", nil)
	if ps == nil {
		t.Fatal("PubSub should not be nil")
	}
	if ps.channel != "test-channel" {
		t.Fatalf("Expected channel 'test-channel', got %s", ps.channel)
	}
	if ps.instanceID != "pod-1" {
		t.Fatalf("Expected instance ID 'pod-1', got %s", ps.instanceID)
	}
}

func TestPubSubSubscribe(t *testing.T) {
	client := newSyncClient(t)

	ps := NewPubSub(client, "test-channel", "pod-1", nil)
	defer ps.Close()

	if err := ps.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
}

func TestPubSubPublishAndReceive(t *testing.T) {
	client := newSyncClient(t)

	publisher := NewPubSub(client, "test-channel", "pod-1", nil)
	defer publisher.Close()

	subscriber := NewPubSub(client, "test-channel", "pod-2", nil)
	defer subscriber.Close()

	ctx := context.Background()
	if err := subscriber.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	received := make(chan InvalidationMessage, 1)
	subscriber.OnInvalidate(func(msg InvalidationMessage) {
		received <- msg
	})

	// Subscribe confirmed the subscription, so this publish is observable
	// without any settling delay.
	msg := InvalidationMessage{
		SourceID: "pod-1",
		Action:   types.ActionDelete,
		Key:      "user:1",
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.SourceID != "pod-1" {
			t.Fatalf("Expected source 'pod-1', got %s", got.SourceID)
		}
		if got.Action != types.ActionDelete {
			t.Fatalf("Expected action 'delete', got %s", got.Action)
		}
		if got.Key != "user:1" {
			t.Fatalf("Expected key 'user:1', got %s", got.Key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestPubSubIgnoresOwnMessages(t *testing.T) {
	client := newSyncClient(t)

	ps := NewPubSub(client, "test-channel", "pod-1", nil)
	defer ps.Close()

	ctx := context.Background()
	if err := ps.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	received := make(chan InvalidationMessage, 1)
	ps.OnInvalidate(func(msg InvalidationMessage) {
		received <- msg
	})

	msg := InvalidationMessage{
		SourceID: "pod-1", // Same as the subscriber's instance ID.
		Action:   types.ActionDelete,
		Key:      "user:1",
	}
	if err := ps.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-received:
		t.Fatal("Should not receive own messages")
	case <-time.After(300 * time.Millisecond):
		// Expected - no message received
	}
}

func TestPubSubClearAction(t *testing.T) {
	client := newSyncClient(t)

	publisher := NewPubSub(client, "test-channel", "pod-1", nil)
	defer publisher.Close()

	subscriber := NewPubSub(client, "test-channel", "pod-2", nil)
	defer subscriber.Close()

	ctx := context.Background()
	if err := subscriber.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	received := make(chan InvalidationMessage, 1)
	subscriber.OnInvalidate(func(msg InvalidationMessage) {
		received <- msg
	})

	msg := InvalidationMessage{
		SourceID: "pod-1",
		Action:   types.ActionClear,
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Action != types.ActionClear {
			t.Fatalf("Expected action 'clear', got %s", got.Action)
		}
		if got.Key != "" {
			t.Fatalf("Clear carries no key, got %s", got.Key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestPubSubSurvivesMalformedPayload(t *testing.T) {
	client := newSyncClient(t)

	publisher := NewPubSub(client, "test-channel", "pod-1", nil)
	defer publisher.Close()

	subscriber := NewPubSub(client, "test-channel", "pod-2", nil)
	defer subscriber.Close()

	ctx := context.Background()
	if err := subscriber.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	received := make(chan InvalidationMessage, 1)
	subscriber.OnInvalidate(func(msg InvalidationMessage) {
		received <- msg
	})

	// Garbage on the channel is dropped, not fatal.
	if err := client.Publish(ctx, "test-channel", "not json").Err(); err != nil {
		t.Fatalf("Raw publish failed: %v", err)
	}

	// A valid message behind it still arrives.
	msg := InvalidationMessage{
		SourceID: "pod-1",
		Action:   types.ActionDelete,
		Key:      "user:1",
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Key != "user:1" {
			t.Fatalf("Expected key 'user:1', got %s", got.Key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listener should survive malformed payloads")
	}
}

func TestPubSubMultipleCallbacks(t *testing.T) {
	client := newSyncClient(t)

	publisher := NewPubSub(client, "test-channel", "pod-1", nil)
	defer publisher.Close()

	subscriber := NewPubSub(client, "test-channel", "pod-2", nil)
	defer subscriber.Close()

	ctx := context.Background()
	if err := subscriber.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	received1 := make(chan InvalidationMessage, 1)
	received2 := make(chan InvalidationMessage, 1)
	subscriber.OnInvalidate(func(msg InvalidationMessage) {
		received1 <- msg
	})
	subscriber.OnInvalidate(func(msg InvalidationMessage) {
		received2 <- msg
	})

	msg := InvalidationMessage{
		SourceID: "pod-1",
		Action:   types.ActionDelete,
		Key:      "user:1",
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	timeout := time.After(2 * time.Second)
	count := 0
	for count < 2 {
		select {
		case <-received1:
			count++
		case <-received2:
			count++
		case <-timeout:
			t.Fatalf("Expected 2 callbacks, got %d", count)
		}
	}
}

func TestPubSubWireFormat(t *testing.T) {
	client := newSyncClient(t)
	ctx := context.Background()

	// A raw subscriber pins the on-the-wire encoding other consumers parse.
	raw := client.Subscribe(ctx, "test-channel")
	defer raw.Close()
	if _, err := raw.Receive(ctx); err != nil {
		t.Fatalf("Raw subscribe failed: %v", err)
	}

	publisher := NewPubSub(client, "test-channel", "pod-1", nil)
	defer publisher.Close()

	msg := InvalidationMessage{
		SourceID: "pod-1",
		Action:   types.ActionDelete,
		Key:      "user:1",
	}
	if err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	payload, err := raw.ReceiveMessage(recvCtx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	expected := `{"source_id":"pod-1","action":"delete","key":"user:1"}`
	if payload.Payload != expected {
		t.Fatalf("Expected payload %s, got %s", expected, payload.Payload)
	}
}

func TestPubSubClose(t *testing.T) {
	client := newSyncClient(t)

	ps := NewPubSub(client, "test-channel", "pod-1", nil)
	if err := ps.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := ps.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ps.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}

	// The shared client stays open for other consumers.
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("Client should remain usable after Close: %v", err)
	}
}

func TestPubSubCloseWithoutSubscribe(t *testing.T) {
	client := newSyncClient(t)

	ps := NewPubSub(client, "test-channel", "pod-1", nil)
	if err := ps.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
