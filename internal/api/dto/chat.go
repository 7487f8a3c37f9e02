package dto

import "time"

// FindOrCreateReq 查找或创建会话请求体
type FindOrCreateReq struct {
	TargetUserID string  `json:"target_user_id" binding:"required"`
	StoreID      uint64  `json:"store_id" binding:"required"`
	OrderID      *uint64 `json:"order_id"`
	ProductID    *uint64 `json:"product_id"`
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
	IsPrivate      bool   `json:"is_private"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             uint64     `json:"id"`
	ConversationID uint64     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	IsPrivate      bool       `json:"is_private"`
	SentAt         time.Time  `json:"sent_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ConversationID uint64    `json:"conversation_id"`
	BuyerID        string    `json:"buyer_id"`
	SellerID       string    `json:"seller_id"`
	StoreID        uint64    `json:"store_id"`
	OrderID        *uint64   `json:"order_id,omitempty"`
	ProductID      *uint64   `json:"product_id,omitempty"`
	PeerID         string    `json:"peer_id"`
	LastMessage    string    `json:"last_message"`
	LastSenderID   string    `json:"last_sender_id"`
	LastMessageAt  time.Time `json:"last_message_at"`
	UnreadCount    int64     `json:"unread_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MarkAsReadDTO 标记已读响应
type MarkAsReadDTO struct {
	Updated int64 `json:"updated"`
}

// WsFrame 实时连接的客户端指令帧
type WsFrame struct {
	Op             string `json:"op"` // join / leave / send
	ConversationID uint64 `json:"conversation_id"`
	Content        string `json:"content"`
	IsPrivate      bool   `json:"is_private"`
}
