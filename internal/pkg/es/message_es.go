package es

import "time"

// MessageES 写入 ES 的消息文档，仅用于全文检索，MySQL 才是事实源
type MessageES struct {
	ID             uint64    `json:"id"`
	ConversationID uint64    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	IsPrivate      bool      `json:"is_private"`
	SentAt         time.Time `json:"sent_at"`
}
