// Package notifications delivers tree changes to live map subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/observability"

	"github.com/redis/go-redis/v9"
)

// TreeEventsChannel is the Redis channel carrying tree events between instances.
const TreeEventsChannel = "trees:events"

// TreeEvent is the payload pushed to live map clients.
type TreeEvent struct {
	Type       string       `json:"type"`
	TreeID     string       `json:"treeId"`
	Tree       *models.Tree `json:"tree,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Broadcaster fans a payload out to every connected client.
type Broadcaster interface {
	BroadcastAll(payload string)
}

// Notifier publishes tree events to Redis. Without Redis it hands them
// straight to the local broadcaster, if one is set.
type Notifier struct {
	rdb   *redis.Client
	local Broadcaster
	now   func() time.Time
}

func NewNotifier(rdb *redis.Client, local Broadcaster) *Notifier {
	return &Notifier{rdb: rdb, local: local, now: time.Now}
}

// PublishTreeEvent publishes one event. Deleted trees are sent without a body.
func (n *Notifier) PublishTreeEvent(ctx context.Context, eventType string, tree *models.Tree) error {
	event := TreeEvent{
		Type:       eventType,
		TreeID:     tree.ID,
		OccurredAt: n.now().UTC(),
	}
	if eventType != models.TreeEventDeleted {
		event.Tree = tree
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal tree event: %w", err)
	}
	observability.TreeEvents.WithLabelValues(eventType).Inc()

	if n.rdb == nil {
		if n.local != nil {
			n.local.BroadcastAll(string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, TreeEventsChannel, string(payload)).Err()
}

// StartTreeSubscriber subscribes to TreeEventsChannel and calls onMessage for
// each payload until ctx is done. It is a no-op without Redis.
func (n *Notifier) StartTreeSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, TreeEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", TreeEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in tree event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
