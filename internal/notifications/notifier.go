// Package notifications publishes user notices and chat events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoBroker is returned by Wait helpers when no Redis client is configured.
var ErrNoBroker = errors.New("notifications: redis not configured")

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a broker is attached.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// UserChannel is the channel of a user's notices.
func UserChannel(userID string) string {
	return "notifications:user:" + userID
}

// RoomChannel is the channel of a chat room's messages.
func RoomChannel(roomID string) string {
	return "chat:room:" + roomID
}

// PublishUser sends v, JSON encoded, to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, v any) error {
	return n.publish(ctx, UserChannel(userID), v)
}

// PublishChatMessage publishes a chat message to its room channel.
func (n *Notifier) PublishChatMessage(ctx context.Context, roomID string, v any) error {
	return n.publish(ctx, RoomChannel(roomID), v)
}

func (n *Notifier) publish(ctx context.Context, channel string, v any) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// WaitForRoom blocks until a message is published to the room, the timeout
// elapses or ctx ends. It returns the raw payload, or "" on timeout.
func (n *Notifier) WaitForRoom(ctx context.Context, roomID string, timeout time.Duration) (string, error) {
	if !n.Enabled() {
		return "", ErrNoBroker
	}
	sub := n.rdb.Subscribe(ctx, RoomChannel(roomID))
	defer sub.Close()

	// Receive the subscription confirmation so no publish is missed after
	// the caller's last fetch.
	if _, err := sub.Receive(ctx); err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return "", nil
		}
		return msg.Payload, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StartUserSubscriber subscribes to every user channel and calls onMessage
// with the channel and payload until ctx ends.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Channel, msg.Payload)
			}
		}
	}()
	return nil
}
