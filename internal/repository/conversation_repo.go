package repository

import (
	"Tradeline/internal/model"
	"context"

	"gorm.io/gorm"
)

// ConversationItem 会话列表项：会话本体 + SQL 计算的未读数与末条消息预览
type ConversationItem struct {
	model.Conversation

	// 虚拟字段：仅读不写，存储 SQL 计算结果
	UnreadCount   int64  `gorm:"->"`
	LastMessage   string `gorm:"->"`
	LastSenderID  string `gorm:"->"`
	LastIsPrivate bool   `gorm:"->"`
}

type ConversationRepo interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetByThreadKey(ctx context.Context, threadKey string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*ConversationItem, error)
	RepairLastMessagePointers(ctx context.Context) (int64, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// Create 插入新会话。thread_key 撞唯一索引时返回 gorm.ErrDuplicatedKey，
// 由上层重读并返回竞争获胜方，而不是当作硬错误
func (s *conversationRepoImpl) Create(ctx context.Context, conv *model.Conversation) error {
	return s.db.WithContext(ctx).Create(conv).Error
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByThreadKey 根据会话唯一键获取会话
func (s *conversationRepoImpl) GetByThreadKey(ctx context.Context, threadKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("thread_key = ?", threadKey).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser 拉取用户参与的全部会话，未读数与末条预览由子查询计算，
// 私密消息不计入未读
func (s *conversationRepoImpl) ListForUser(ctx context.Context, userID string) ([]*ConversationItem, error) {
	var items []*ConversationItem
	err := s.db.WithContext(ctx).Table("conversations c").
		Select("c.*, "+
			"(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id "+
			"AND m.sender_id <> ? AND m.read_at IS NULL AND m.is_private = 0) AS unread_count, "+
			"COALESCE(lm.content, '') AS last_message, "+
			"COALESCE(lm.sender_id, '') AS last_sender_id, "+
			"COALESCE(lm.is_private, 0) AS last_is_private",
			userID).
		Joins("LEFT JOIN messages lm ON lm.id = c.last_message_id").
		Where("c.buyer_id = ? OR c.seller_id = ?", userID, userID).
		Order("c.last_message_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RepairLastMessagePointers 修复与消息表脱节的末条消息指针。
// 指针是冗余字段，广播失败或历史数据可能让它落后于真实末条。
func (s *conversationRepoImpl) RepairLastMessagePointers(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Exec(
		"UPDATE conversations c " +
			"JOIN (SELECT conversation_id, MAX(id) AS max_id FROM messages GROUP BY conversation_id) t " +
			"ON c.id = t.conversation_id " +
			"SET c.last_message_id = t.max_id " +
			"WHERE c.last_message_id IS NULL OR c.last_message_id <> t.max_id")
	return result.RowsAffected, result.Error
}
