package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrPasswordIncorrect    = errors.New("密码错误")
	ErrTargetUserInvalid    = errors.New("目标用户无效")
	ErrTargetIsSelf         = errors.New("不能与自己创建会话")
	ErrStoreNotFound        = errors.New("店铺不存在")
	ErrOrderNotFound        = errors.New("订单不存在")
	ErrProductNotFound      = errors.New("商品不存在")
	ErrStoreRoleAmbiguous   = errors.New("会话双方必须恰有一方是店主")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrConversationDenied   = errors.New("无权访问该会话")
	ErrMessageEmpty         = errors.New("消息内容不能为空")
	ErrMessageTooLong       = errors.New("消息内容超出长度限制")
	ErrConversationConflict = errors.New("会话已存在")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrUserNotFound:         NotFound,
	ErrPasswordIncorrect:    Unauthorized,
	ErrTargetUserInvalid:    BadRequest,
	ErrTargetIsSelf:         BadRequest,
	ErrStoreNotFound:        NotFound,
	ErrOrderNotFound:        NotFound,
	ErrProductNotFound:      NotFound,
	ErrStoreRoleAmbiguous:   BadRequest,
	ErrConversationNotFound: NotFound,
	ErrConversationDenied:   Forbidden,
	ErrMessageEmpty:         BadRequest,
	ErrMessageTooLong:       BadRequest,
	ErrConversationConflict: Conflict,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
}
