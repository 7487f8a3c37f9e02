package job

import (
	"Tradeline/internal/pkg/logger"
	"Tradeline/internal/repository"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// ConversationRepairJob 定期校正会话上的最后消息指针。
// 发送事务失败重试、人工改库等情况可能让指针落后于消息表，
// 以消息表为准回填。
type ConversationRepairJob struct {
	convRepo repository.ConversationRepo
}

func NewConversationRepairJob(convRepo repository.ConversationRepo) *ConversationRepairJob {
	return &ConversationRepairJob{
		convRepo: convRepo,
	}
}

func (s *ConversationRepairJob) Run() {
	traceID := "job-conv-repair-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	repaired, err := s.convRepo.RepairLastMessagePointers(ctx)
	if err != nil {
		log.ErrorContext(ctx, "repair conversation pointers error", "err", err)
		return
	}

	log.InfoContext(ctx, "ConversationRepairJob finished", "repaired_count", repaired)
}
