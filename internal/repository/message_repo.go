package repository

import (
	"Tradeline/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID uint64, viewerID string, seeAllPrivate bool, page, pageSize int) ([]*model.Message, error)
	MarkRead(ctx context.Context, convID uint64, readerID string, at time.Time) (int64, error)
	CountUnreadForUser(ctx context.Context, userID string) (int64, error)
}

type messageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepoImpl{db: db}
}

// SaveMessage 落库消息并在同一事务内推进会话的末条消息指针
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"last_message_at": msg.SentAt,
			}).Error
	})
}

// ListMessages 按时间正序分页，sent_at 相同用 id 兜底定序。
// 私密消息仅发送者本人可见，seeAllPrivate（管理员）放开过滤。
func (s *messageRepoImpl) ListMessages(ctx context.Context, convID uint64, viewerID string, seeAllPrivate bool, page, pageSize int) ([]*model.Message, error) {
	query := s.db.WithContext(ctx).Where("conversation_id = ?", convID)
	if !seeAllPrivate {
		query = query.Where("is_private = 0 OR sender_id = ?", viewerID)
	}

	var messages []*model.Message
	err := query.
		Order("sent_at ASC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead 批量置已读：只针对他人发送且尚未读的消息，返回更新条数
func (s *messageRepoImpl) MarkRead(ctx context.Context, convID uint64, readerID string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", convID, readerID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

// CountUnreadForUser 计算用户全局未读数（不含私密消息）
func (s *messageRepoImpl) CountUnreadForUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Table("messages m").
		Joins("JOIN conversations c ON m.conversation_id = c.id").
		Where("(c.buyer_id = ? OR c.seller_id = ?)", userID, userID).
		Where("m.sender_id <> ? AND m.read_at IS NULL AND m.is_private = 0", userID).
		Count(&total).Error
	return total, err
}
