package model

import "time"

// Message 消息明细表
type Message struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64     `gorm:"not null;index:idx_conv_sent,priority:1" json:"conversationId"`
	SenderID       string     `gorm:"type:varchar(36);not null;index" json:"senderId"`
	Content        string     `gorm:"type:varchar(4000);not null" json:"content"`
	IsPrivate      bool       `gorm:"not null;default:0" json:"isPrivate"` // 仅发送者与管理员可见
	PrevMessageID  *uint64    `json:"prevMessageId"`
	SentAt         time.Time  `gorm:"not null;index:idx_conv_sent,priority:2" json:"sentAt"`
	ReadAt         *time.Time `json:"readAt"`
}

func (Message) TableName() string { return "messages" }

// VisibleTo 私密消息只对发送者本人和管理员可见
func (m *Message) VisibleTo(userID string, isAdmin bool) bool {
	if !m.IsPrivate {
		return true
	}
	return isAdmin || m.SenderID == userID
}
