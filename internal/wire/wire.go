package wire

import (
	"Tradeline/internal/api"
	"Tradeline/internal/api/handler"
	"Tradeline/internal/job"
	"Tradeline/internal/pkg/cron"
	"Tradeline/internal/pkg/es"
	"Tradeline/internal/pkg/hub"
	"Tradeline/internal/repository"
	"Tradeline/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	Hub     *hub.Hub
	CronMgr *cron.Manager
}

func BuildApplication(db *gorm.DB, h *hub.Hub) (*ApplicationContainer, error) {
	convRepo := repository.NewConversationRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	storeRepo := repository.NewStoreRepo(db)
	userRepo := repository.NewUserRepo(db)
	searchRepo := es.NewMessageSearchRepo(es.Client)

	chatService := service.NewChatService(convRepo, messageRepo, storeRepo, userRepo, searchRepo, h)
	userService := service.NewUserService(userRepo)

	handlers := &api.HandlersGroup{
		UserHandler: handler.NewUserHandler(userService),
		ChatHandler: handler.NewChatHandler(chatService),
		WsHandler:   handler.NewWsHandler(chatService, h),
	}

	router := api.SetupRouter(handlers)

	convRepairJob := job.NewConversationRepairJob(convRepo)
	cronMgr := cron.NewCronManager(convRepairJob)

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		Hub:     h,
		CronMgr: cronMgr,
	}, nil
}
