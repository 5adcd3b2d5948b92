package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const demoEventChannelPrefix = "arena:demo:" // Pub/Sub channel for demo events: arena:demo:{demo_id}

// Event types published on a demo channel
const (
	EventOutputCreated = "output.created"
	EventOutputUpdated = "output.updated"
	EventDemoUpdated   = "demo.updated"
)

// DemoEvent notifies stream subscribers that something on a demo changed
type DemoEvent struct {
	Type     string    `json:"type"`
	DemoID   string    `json:"demo_id"`
	OutputID string    `json:"output_id,omitempty"`
	ModelID  string    `json:"model_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

// EventBus publishes and subscribes to demo events over Redis Pub/Sub
type EventBus struct {
	client *redis.Client
}

// NewEventBus creates a new EventBus
func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

// Publish sends ev to the demo's channel
func (b *EventBus) Publish(ctx context.Context, ev DemoEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, demoEventChannel(ev.DemoID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe streams events for demoID until ctx is done or the returned close func is called
func (b *EventBus) Subscribe(ctx context.Context, demoID string) (<-chan DemoEvent, func() error, error) {
	sub := b.client.Subscribe(ctx, demoEventChannel(demoID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan DemoEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev DemoEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[warn] component=events operation=decode channel=%s error=%v", msg.Channel, err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}

func demoEventChannel(demoID string) string {
	return fmt.Sprintf("%s%s", demoEventChannelPrefix, demoID)
}
