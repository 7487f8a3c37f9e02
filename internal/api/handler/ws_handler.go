package handler

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/pkg/hub"
	"Tradeline/internal/pkg/response"
	"Tradeline/internal/pkg/security"
	"Tradeline/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	chatService service.ChatService
	hub         *hub.Hub
}

func NewWsHandler(chatService service.ChatService, h *hub.Hub) *WsHandler {
	return &WsHandler{chatService: chatService, hub: h}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权：未认证连接直接拒绝
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	ident := service.Identity{UserID: claims.UserID, Roles: claims.Roles}

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	client := hub.NewClient(ident.UserID)
	defer s.hub.Unregister(context.Background(), client)

	// 按存储中的参与关系自动加入房间，不信任任何缓存状态
	list, err := s.chatService.GetConversationList(context.Background(), ident)
	if err != nil {
		log.Error("获取会话列表失败", "userID", ident.UserID, "err", err)
		return
	}
	for _, conv := range list {
		if err = s.hub.Join(context.Background(), client, conv.ConversationID); err != nil {
			log.Error("加入会话房间失败", "userID", ident.UserID, "convID", conv.ConversationID, "err", err)
		}
	}

	log.Info("用户 WS 连接已建立", "userID", ident.UserID, "rooms", len(list))

	// 写循环：从出站队列推送至客户端
	go func() {
		for payload := range client.Outbox() {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Error("WS 推送失败", "userID", ident.UserID, "err", err)
				return
			}
		}
	}()

	// 读循环：处理客户端指令帧，连接断开即退出
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info("用户 WS 连接已断开", "userID", ident.UserID)
			return
		}
		s.handleFrame(ident, client, data)
	}
}

// handleFrame 处理单条指令帧。准入失败一律静默拒绝只落日志，
// 不向对端回传任何拒绝信息。
func (s *WsHandler) handleFrame(ident service.Identity, client *hub.Client, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frame dto.WsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn("WS 指令帧解析失败", "userID", ident.UserID, "err", err)
		return
	}
	if frame.ConversationID == 0 {
		return
	}

	switch frame.Op {
	case "join":
		if !s.chatService.CanAccess(ctx, ident, frame.ConversationID) {
			return
		}
		if err := s.hub.Join(ctx, client, frame.ConversationID); err != nil {
			log.Error("加入会话房间失败", "userID", ident.UserID, "convID", frame.ConversationID, "err", err)
		}
	case "leave":
		s.hub.Leave(ctx, client, frame.ConversationID)
	case "send":
		if _, err := s.chatService.SendMessage(ctx, ident, frame.ConversationID, frame.Content, frame.IsPrivate); err != nil {
			log.Warn("WS 消息发送被拒", "userID", ident.UserID, "convID", frame.ConversationID, "err", err)
		}
	default:
		log.Warn("未知的 WS 指令", "op", frame.Op, "userID", ident.UserID)
	}
}
