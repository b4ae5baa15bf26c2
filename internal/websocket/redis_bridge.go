package websocket

import (
	"context"
	"errors"

	"guest-snapper/internal/redis"
	"guest-snapper/pkg/logger"

	"go.uber.org/zap"
)

// UploadSubscriber is satisfied by *redis.Subscriber.
type UploadSubscriber interface {
	SubscribeUploads(ctx context.Context, handler func(channel string, payload []byte)) error
}

// RedisBridge forwards progress published on Redis to the hub's viewers.
type RedisBridge struct {
	subscriber UploadSubscriber
	hub        *Hub
	log        *logger.Logger
}

func NewRedisBridge(subscriber UploadSubscriber, hub *Hub, l *logger.Logger) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub, log: logger.OrGlobal(l)}
}

// Run blocks until ctx is done or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	err := b.subscriber.SubscribeUploads(ctx, b.forward)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *RedisBridge) forward(channel string, payload []byte) {
	if _, ok := redis.EventIDFromChannel(channel); !ok {
		b.log.Logger.Debug("ignoring message on unexpected channel", zap.String("channel", channel))
		return
	}
	b.hub.Broadcast(channel, payload)
}
