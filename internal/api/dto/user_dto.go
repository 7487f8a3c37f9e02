package dto

// CredentialDTO 登录凭据
type CredentialDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenDTO 登录成功响应
type TokenDTO struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// UserSimpleDTO 用户简要信息（id -> 展示名）
type UserSimpleDTO struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}
