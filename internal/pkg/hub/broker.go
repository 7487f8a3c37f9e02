package hub

import "context"

// BrokerMessage 总线投递的一条原始消息
type BrokerMessage struct {
	Channel string
	Payload []byte
}

// Subscription 一条可动态增减频道的订阅
type Subscription interface {
	Add(ctx context.Context, channels ...string) error
	Remove(ctx context.Context, channels ...string) error
	Messages() <-chan BrokerMessage
	Close() error
}

// Broker 跨实例消息总线抽象。房间成员关系是进程内状态，
// 消息必须经由总线投递，实例 A 落库的消息才能到达实例 B 上的连接。
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context) (Subscription, error)
}
