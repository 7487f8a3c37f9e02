package service

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/model"
	"Tradeline/internal/pkg/consts"
	"Tradeline/internal/pkg/es"
	"Tradeline/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// MessagePublisher 消息落库后的跨实例投递入口（由 hub 实现）
type MessagePublisher interface {
	Publish(ctx context.Context, convID uint64, payload []byte) error
}

// ChatService 会话与消息服务接口定义
type ChatService interface {
	FindOrCreateConversation(ctx context.Context, ident Identity, req *dto.FindOrCreateReq) (*dto.ConversationDTO, bool, error)
	SendMessage(ctx context.Context, ident Identity, convID uint64, content string, isPrivate bool) (*dto.MessageDTO, error)
	ListMessages(ctx context.Context, ident Identity, convID uint64, page, pageSize int) ([]*dto.MessageDTO, error)
	MarkAsRead(ctx context.Context, ident Identity, convID uint64) (int64, error)
	GetConversationList(ctx context.Context, ident Identity) ([]*dto.ConversationDTO, error)
	SearchMessages(ctx context.Context, ident Identity, queryText string, convID uint64, page, pageSize int) ([]*dto.MessageDTO, error)
	GetUnreadTotal(ctx context.Context, ident Identity) (int64, error)
	CanAccess(ctx context.Context, ident Identity, convID uint64) bool
}

type chatServiceImpl struct {
	convRepo    repository.ConversationRepo
	messageRepo repository.MessageRepo
	storeRepo   repository.StoreRepo
	userRepo    repository.UserRepo
	searchRepo  es.MessageSearchRepo
	publisher   MessagePublisher
}

func NewChatService(
	convRepo repository.ConversationRepo,
	messageRepo repository.MessageRepo,
	storeRepo repository.StoreRepo,
	userRepo repository.UserRepo,
	searchRepo es.MessageSearchRepo,
	publisher MessagePublisher,
) ChatService {
	return &chatServiceImpl{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		storeRepo:   storeRepo,
		userRepo:    userRepo,
		searchRepo:  searchRepo,
		publisher:   publisher,
	}
}

// FindOrCreateConversation 查找或创建会话。
// 买卖双方角色由店铺归属在服务端推导，不采信调用方自称的角色。
// 返回的 bool 表示本次是否新建。
func (s *chatServiceImpl) FindOrCreateConversation(ctx context.Context, ident Identity, req *dto.FindOrCreateReq) (*dto.ConversationDTO, bool, error) {
	if req.TargetUserID == ident.UserID {
		return nil, false, ErrTargetIsSelf
	}

	if _, err := s.userRepo.GetByID(ctx, req.TargetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTargetUserInvalid
		}
		return nil, false, err
	}

	store, err := s.storeRepo.GetStore(ctx, req.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrStoreNotFound
		}
		return nil, false, err
	}

	// 恰有一方是店主：店主为卖家，另一方为买家
	var buyerID, sellerID string
	switch store.OwnerID {
	case ident.UserID:
		sellerID, buyerID = ident.UserID, req.TargetUserID
	case req.TargetUserID:
		sellerID, buyerID = req.TargetUserID, ident.UserID
	default:
		return nil, false, ErrStoreRoleAmbiguous
	}

	if req.OrderID != nil {
		exists, err := s.storeRepo.OrderExists(ctx, *req.OrderID)
		if err != nil {
			return nil, false, err
		}
		if !exists {
			return nil, false, ErrOrderNotFound
		}
	}
	if req.ProductID != nil {
		exists, err := s.storeRepo.ProductExists(ctx, *req.ProductID)
		if err != nil {
			return nil, false, err
		}
		if !exists {
			return nil, false, ErrProductNotFound
		}
	}

	threadKey := model.BuildThreadKey(buyerID, sellerID, req.StoreID, req.OrderID, req.ProductID)

	conv, err := s.convRepo.GetByThreadKey(ctx, threadKey)
	if err == nil {
		return s.toConversationDTO(conv, ident.UserID), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	newConv := &model.Conversation{
		BuyerID:       buyerID,
		SellerID:      sellerID,
		StoreID:       req.StoreID,
		OrderID:       req.OrderID,
		ProductID:     req.ProductID,
		ThreadKey:     threadKey,
		LastMessageAt: time.Now().UTC(),
	}
	if err = s.convRepo.Create(ctx, newConv); err != nil {
		// 并发撞唯一索引：重读并返回获胜方
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			winner, rerr := s.convRepo.GetByThreadKey(ctx, threadKey)
			if rerr != nil {
				return nil, false, rerr
			}
			return s.toConversationDTO(winner, ident.UserID), false, nil
		}
		return nil, false, err
	}

	return s.toConversationDTO(newConv, ident.UserID), true, nil
}

// SendMessage 发送消息：校验 -> 落库 -> 总线广播 -> 异步索引
func (s *chatServiceImpl) SendMessage(ctx context.Context, ident Identity, convID uint64, content string, isPrivate bool) (*dto.MessageDTO, error) {
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(content) > consts.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	if _, err := s.authorize(ctx, ident, convID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       ident.UserID,
		Content:        content,
		IsPrivate:      isPrivate,
		SentAt:         time.Now().UTC(),
	}
	if err := s.messageRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	msgDTO := s.toMessageDTO(msg)

	// 私密消息不进实时广播，避免对非发送方泄露
	if !isPrivate {
		s.broadcast(convID, msgDTO)
	}

	go s.indexMessage(msg)

	return msgDTO, nil
}

// ListMessages 按时间正序分页拉取
func (s *chatServiceImpl) ListMessages(ctx context.Context, ident Identity, convID uint64, page, pageSize int) ([]*dto.MessageDTO, error) {
	page, pageSize = clampPage(page, pageSize)

	if _, err := s.authorize(ctx, ident, convID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListMessages(ctx, convID, ident.UserID, ident.IsAdmin(), page, pageSize)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageDTO, 0, len(messages))
	for _, m := range messages {
		res = append(res, s.toMessageDTO(m))
	}
	return res, nil
}

// MarkAsRead 将他人发送的未读消息置为已读，返回更新条数。
// 自己发送的消息不会被自己置读。
func (s *chatServiceImpl) MarkAsRead(ctx context.Context, ident Identity, convID uint64) (int64, error) {
	if _, err := s.authorize(ctx, ident, convID); err != nil {
		return 0, err
	}

	updated, err := s.messageRepo.MarkRead(ctx, convID, ident.UserID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// GetConversationList 获取会话列表，按最近活跃排序
func (s *chatServiceImpl) GetConversationList(ctx context.Context, ident Identity) ([]*dto.ConversationDTO, error) {
	items, err := s.convRepo.ListForUser(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(items))
	for _, item := range items {
		d := s.toConversationDTO(&item.Conversation, ident.UserID)
		d.UnreadCount = item.UnreadCount
		d.LastSenderID = item.LastSenderID

		// 末条为私密消息时，对非发送方隐去预览
		if item.LastIsPrivate && item.LastSenderID != ident.UserID && !ident.IsAdmin() {
			d.LastMessage = ""
		} else {
			d.LastMessage = item.LastMessage
		}
		res = append(res, d)
	}
	return res, nil
}

// SearchMessages 全文检索。convID 为 0 时在用户全部会话内检索。
func (s *chatServiceImpl) SearchMessages(ctx context.Context, ident Identity, queryText string, convID uint64, page, pageSize int) ([]*dto.MessageDTO, error) {
	if queryText == "" {
		return nil, ErrParamInvalid
	}
	page, pageSize = clampPage(page, pageSize)

	var convIDs []uint64
	if convID != 0 {
		if _, err := s.authorize(ctx, ident, convID); err != nil {
			return nil, err
		}
		convIDs = []uint64{convID}
	} else {
		items, err := s.convRepo.ListForUser(ctx, ident.UserID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			convIDs = append(convIDs, item.ID)
		}
	}

	hits, err := s.searchRepo.SearchMessages(ctx, queryText, convIDs, ident.UserID, ident.IsAdmin(), (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageDTO, 0, len(hits))
	for _, h := range hits {
		res = append(res, &dto.MessageDTO{
			ID:             h.ID,
			ConversationID: h.ConversationID,
			SenderID:       h.SenderID,
			Content:        h.Content,
			IsPrivate:      h.IsPrivate,
			SentAt:         h.SentAt,
		})
	}
	return res, nil
}

// GetUnreadTotal 计算用户全局未读数
func (s *chatServiceImpl) GetUnreadTotal(ctx context.Context, ident Identity) (int64, error) {
	return s.messageRepo.CountUnreadForUser(ctx, ident.UserID)
}

// CanAccess 实时路径的准入判定：从不报错，拒绝原因只落日志
func (s *chatServiceImpl) CanAccess(ctx context.Context, ident Identity, convID uint64) bool {
	_, err := s.authorize(ctx, ident, convID)
	if err != nil {
		log.InfoContext(ctx, "会话准入被拒", "userID", ident.UserID, "convID", convID, "err", err)
		return false
	}
	return true
}

// authorize 访问守卫：参与方或管理员放行。
// 会话不存在与无权访问分别映射 404 / 403，由 HTTP 层统一翻译。
func (s *chatServiceImpl) authorize(ctx context.Context, ident Identity, convID uint64) (*model.Conversation, error) {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.IsParticipant(ident.UserID) && !ident.IsAdmin() {
		return nil, ErrConversationDenied
	}
	return conv, nil
}

// broadcast 将已落库的消息发布到会话频道，失败只记日志，不回滚消息
func (s *chatServiceImpl) broadcast(convID uint64, msgDTO *dto.MessageDTO) {
	data, err := json.Marshal(msgDTO)
	if err != nil {
		log.Error("消息序列化失败", "msgID", msgDTO.ID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err = s.publisher.Publish(ctx, convID, data); err != nil {
		log.Error("消息广播失败", "convID", convID, "msgID", msgDTO.ID, "err", err)
	}
}

// indexMessage 异步写入搜索索引，尽力而为
func (s *chatServiceImpl) indexMessage(msg *model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := &es.MessageES{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		IsPrivate:      msg.IsPrivate,
		SentAt:         msg.SentAt,
	}
	if err := s.searchRepo.IndexMessage(ctx, doc); err != nil {
		log.Error("消息索引失败", "msgID", msg.ID, "err", err)
	}
}

func (s *chatServiceImpl) toConversationDTO(conv *model.Conversation, viewerID string) *dto.ConversationDTO {
	return &dto.ConversationDTO{
		ConversationID: conv.ID,
		BuyerID:        conv.BuyerID,
		SellerID:       conv.SellerID,
		StoreID:        conv.StoreID,
		OrderID:        conv.OrderID,
		ProductID:      conv.ProductID,
		PeerID:         conv.PeerOf(viewerID),
		LastMessageAt:  conv.LastMessageAt,
		CreatedAt:      conv.CreatedAt,
	}
}

func (s *chatServiceImpl) toMessageDTO(m *model.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID: m.ID, ConversationID: m.ConversationID, SenderID: m.SenderID,
		Content: m.Content, IsPrivate: m.IsPrivate,
		SentAt: m.SentAt, ReadAt: m.ReadAt,
	}
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = consts.DefaultPageSize
	}
	if pageSize > consts.MaxPageSize {
		pageSize = consts.MaxPageSize
	}
	return page, pageSize
}
