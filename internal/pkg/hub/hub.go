package hub

import (
	"Tradeline/internal/pkg/consts"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
)

// Hub 房间注册表：会话 ID -> 当前在线连接集合。
// 成员关系只是进程内瞬态，消息路由统一走 Broker，
// 本实例的连接也通过总线回环收到消息，保证单实例与多实例行为一致。
type Hub struct {
	broker Broker

	mu    sync.RWMutex
	rooms map[uint64]map[*Client]struct{}
	sub   Subscription
}

func NewHub(broker Broker) *Hub {
	return &Hub{
		broker: broker,
		rooms:  make(map[uint64]map[*Client]struct{}),
	}
}

// Start 建立总线订阅并阻塞分发，直到 ctx 取消
func (h *Hub) Start(ctx context.Context) error {
	sub, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()

	defer func() {
		_ = sub.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			h.dispatch(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Join 将连接加入会话房间，房间首个成员触发总线频道订阅
func (h *Hub) Join(ctx context.Context, c *Client, convID uint64) error {
	h.mu.Lock()
	room, ok := h.rooms[convID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[convID] = room
	}
	first := len(room) == 0
	room[c] = struct{}{}
	sub := h.sub
	h.mu.Unlock()

	if first && sub != nil {
		if err := sub.Add(ctx, channelFor(convID)); err != nil {
			return err
		}
	}
	return nil
}

// Leave 幂等退出房间，末位成员退出后退订总线频道
func (h *Hub) Leave(ctx context.Context, c *Client, convID uint64) {
	h.mu.Lock()
	room, ok := h.rooms[convID]
	if ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, convID)
		}
	}
	empty := ok && len(room) == 0
	sub := h.sub
	h.mu.Unlock()

	if empty && sub != nil {
		if err := sub.Remove(ctx, channelFor(convID)); err != nil {
			log.Warn("退订会话频道失败", "convID", convID, "err", err)
		}
	}
}

// Unregister 连接断开时清理其全部房间成员关系
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	h.mu.RLock()
	var ids []uint64
	for convID, room := range h.rooms {
		if _, ok := room[c]; ok {
			ids = append(ids, convID)
		}
	}
	h.mu.RUnlock()

	for _, convID := range ids {
		h.Leave(ctx, c, convID)
	}
	c.Close()
}

// Publish 将已落库的消息发布到会话频道
func (h *Hub) Publish(ctx context.Context, convID uint64, payload []byte) error {
	return h.broker.Publish(ctx, channelFor(convID), payload)
}

func (h *Hub) dispatch(msg BrokerMessage) {
	convID, err := conversationOf(msg.Channel)
	if err != nil {
		log.Warn("忽略无法解析的总线频道", "channel", msg.Channel)
		return
	}

	h.mu.RLock()
	room := h.rooms[convID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Enqueue(msg.Payload)
	}
}

func channelFor(convID uint64) string {
	return consts.IMConversationKey + strconv.FormatUint(convID, 10)
}

func conversationOf(channel string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(channel, consts.IMConversationKey), 10, 64)
}
