package service

import (
	"Tradeline/internal/api/dto"
	"Tradeline/internal/pkg/consts"
	"Tradeline/internal/pkg/redis"
	"Tradeline/internal/pkg/security"
	"Tradeline/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

const simpleInfoCacheTTL = 10 * time.Minute

// UserService 用户身份服务：登录签发与 id -> 展示名解析
type UserService interface {
	Login(ctx context.Context, cred *dto.CredentialDTO) (*dto.TokenDTO, error)
	Logout(ctx context.Context, tokenString string) error
	GetUserSimpleInfoById(ctx context.Context, userID string) (*dto.UserSimpleDTO, error)
}

type userServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &userServiceImpl{userRepo: userRepo}
}

// Login 校验凭据并签发 JWT
func (s *userServiceImpl) Login(ctx context.Context, cred *dto.CredentialDTO) (*dto.TokenDTO, error) {
	user, err := s.userRepo.GetByUsername(ctx, cred.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err = security.CheckPasswordHash(cred.Password, user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	var roles []string
	if user.Roles != "" {
		roles = strings.Split(user.Roles, ",")
	}

	token, err := security.GenerateToken(user.ID, roles)
	if err != nil {
		return nil, err
	}

	return &dto.TokenDTO{UserID: user.ID, Token: token}, nil
}

// Logout 将 Token 签名拉黑至过期
func (s *userServiceImpl) Logout(ctx context.Context, tokenString string) error {
	signature, err := security.ExtractSignature(tokenString)
	if err != nil {
		return ErrParamInvalid
	}
	return redis.SetWithExpiration(ctx, signature, "revoked", security.JWTExpirationTime)
}

// GetUserSimpleInfoById 用户简要信息，带缓存
func (s *userServiceImpl) GetUserSimpleInfoById(ctx context.Context, userID string) (*dto.UserSimpleDTO, error) {
	cacheKey := consts.UserSimpleInfoKey + userID

	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var d dto.UserSimpleDTO
		if err = json.Unmarshal([]byte(cached), &d); err == nil {
			return &d, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var d dto.UserSimpleDTO
	if err = copier.Copy(&d, user); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(&d); err == nil {
		if err = redis.SetWithExpiration(ctx, cacheKey, data, simpleInfoCacheTTL); err != nil {
			log.WarnContext(ctx, "写入用户信息缓存失败", "userID", userID, "err", err)
		}
	}

	return &d, nil
}
