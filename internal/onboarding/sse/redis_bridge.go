package sse

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "onboard:events"

type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge fans events out to the hubs of every instance through redis
// pub/sub. Events are delivered locally right away; messages that come back
// from this instance are dropped.
type RedisBridge struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisBridge 创建跨实例事件桥
func NewRedisBridge(rdb *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		rdb:     rdb,
		hub:     hub,
		channel: channel,
		origin:  uuid.New().String(),
		logger:  logger,
	}
}

// Publish broadcasts locally and forwards the event to other instances.
func (b *RedisBridge) Publish(ctx context.Context, event Event) {
	b.hub.Broadcast(event)

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		b.logger.Error("encode event", zap.Error(err))
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("publish event to redis", zap.String("event", event.EventType), zap.Error(err))
	}
}

// Run relays events published by other instances until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("sse redis bridge subscribed", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(msg.Payload)
		}
	}
}

func (b *RedisBridge) deliver(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("discard malformed event", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Broadcast(env.Event)
}
