package handler

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/pkg/response"
	"Tradeline/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// identityOf 从 Context 中取出中间件注入的已鉴权身份
func identityOf(c *gin.Context) service.Identity {
	return service.Identity{
		UserID: c.GetString("user_id"),
		Roles:  c.GetStringSlice("roles"),
	}
}

// GetConversationList 获取会话列表
func (s *ChatHandler) GetConversationList(c *gin.Context) {
	res, err := s.chatService.GetConversationList(c, identityOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// FindOrCreateConversation 查找或创建会话接口
func (s *ChatHandler) FindOrCreateConversation(c *gin.Context) {
	var req dto.FindOrCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, created, err := s.chatService.FindOrCreateConversation(c, identityOf(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, res)
		return
	}
	response.Success(c, res)
}

// GetMessages 按时间正序分页获取消息
func (s *ChatHandler) GetMessages(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || convID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	res, err := s.chatService.ListMessages(c, identityOf(c), convID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 标记已读接口
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || convID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	updated, err := s.chatService.MarkAsRead(c, identityOf(c), convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MarkAsReadDTO{Updated: updated})
}

// SearchMessages 消息全文检索
func (s *ChatHandler) SearchMessages(c *gin.Context) {
	queryText := c.Query("q")
	convID, _ := strconv.ParseUint(c.Query("conversationId"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	res, err := s.chatService.SearchMessages(c, identityOf(c), queryText, convID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetUnreadTotal 获取全局未读数
func (s *ChatHandler) GetUnreadTotal(c *gin.Context) {
	total, err := s.chatService.GetUnreadTotal(c, identityOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"total": total})
}
