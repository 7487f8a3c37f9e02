package handler

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/pkg/response"
	"Tradeline/internal/service"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Login 登录接口
func (s *UserHandler) Login(c *gin.Context) {
	var cred dto.CredentialDTO
	if err := c.ShouldBindJSON(&cred); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userService.Login(c, &cred)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Logout 登出接口：拉黑当前 Token
func (s *UserHandler) Logout(c *gin.Context) {
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	if err := s.userService.Logout(c, tokenString); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetUserSimpleInfoById 用户简要信息接口
func (s *UserHandler) GetUserSimpleInfoById(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userService.GetUserSimpleInfoById(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
