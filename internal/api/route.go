package api

import (
	"Tradeline/internal/api/middleware"
	"Tradeline/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.GET("/:user_id/simple", group.UserHandler.GetUserSimpleInfoById)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
			}
		}

		chatGroup := apiGroup.Group("/chat")
		{
			// WS 连接经 token 查询参数自行鉴权
			chatGroup.GET("/ws", group.WsHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/conversations", group.ChatHandler.GetConversationList)
				authGroup.POST("/conversations/find-or-create", group.ChatHandler.FindOrCreateConversation)
				authGroup.GET("/conversations/:id/messages", group.ChatHandler.GetMessages)
				authGroup.POST("/conversations/:id/markasread", group.ChatHandler.MarkAsRead)
				authGroup.GET("/search", group.ChatHandler.SearchMessages)
				authGroup.GET("/unread", group.ChatHandler.GetUnreadTotal)
			}
		}
	}

	return r
}
