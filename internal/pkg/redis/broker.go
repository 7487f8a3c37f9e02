package redis

import (
	"Tradeline/internal/pkg/hub"
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PubSubBroker 基于 Redis Pub/Sub 的跨实例消息总线
type PubSubBroker struct {
	client *redis.Client
}

func NewPubSubBroker(client *redis.Client) *PubSubBroker {
	return &PubSubBroker{client: client}
}

func (b *PubSubBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrap(err, "redis publish")
	}
	return nil
}

func (b *PubSubBroker) Subscribe(ctx context.Context) (hub.Subscription, error) {
	// 先订阅空集，频道随房间成员增减动态调整
	ps := b.client.Subscribe(ctx)

	sub := &pubSubSubscription{
		ps:  ps,
		out: make(chan hub.BrokerMessage, 256),
	}
	go sub.pump()
	return sub, nil
}

type pubSubSubscription struct {
	ps  *redis.PubSub
	out chan hub.BrokerMessage
}

func (s *pubSubSubscription) pump() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		s.out <- hub.BrokerMessage{Channel: msg.Channel, Payload: []byte(msg.Payload)}
	}
}

func (s *pubSubSubscription) Add(ctx context.Context, channels ...string) error {
	return s.ps.Subscribe(ctx, channels...)
}

func (s *pubSubSubscription) Remove(ctx context.Context, channels ...string) error {
	return s.ps.Unsubscribe(ctx, channels...)
}

func (s *pubSubSubscription) Messages() <-chan hub.BrokerMessage {
	return s.out
}

func (s *pubSubSubscription) Close() error {
	return s.ps.Close()
}
