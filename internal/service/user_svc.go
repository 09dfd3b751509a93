package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/pkg/config"
	"bizboost_v1_202608/pkg/utils"
)

// ==================== 输入输出 ====================

// RegisterInput 注册输入
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Phone    string
}

// TokenPair 登录返回的令牌组
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

var (
	ErrUsernameTaken    = errors.New("用户名已被占用")
	ErrBadCredentials   = errors.New("用户名或密码错误")
	ErrAccountDisabled  = errors.New("账号已被禁用")
	ErrRefreshRequired  = errors.New("请使用刷新令牌")
)

// ==================== 服务 ====================

// UserService 账号服务（注册/登录/令牌刷新）
type UserService struct {
	Repo   repository.UserRepository
	JWTCfg *config.JWTConfig
}

// NewUserService 工厂方法
func NewUserService(repo repository.UserRepository, jwtCfg *config.JWTConfig) *UserService {
	return &UserService{Repo: repo, JWTCfg: jwtCfg}
}

// Register 注册商家老板账号
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.SysUser, error) {
	taken, err := s.Repo.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.SysUser{
		Username: input.Username,
		Password: string(hashed),
		Email:    input.Email,
		Phone:    input.Phone,
		Role:     "owner",
		IsActive: true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Login 登录换令牌
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, *model.SysUser, error) {
	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, ErrBadCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, ErrBadCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	user.Password = ""
	return pair, user, nil
}

// RefreshTokens 用刷新令牌换新令牌组
func (s *UserService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := utils.ParseToken(s.JWTCfg, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Subject != "refresh" {
		return nil, ErrRefreshRequired
	}

	user, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, utils.ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.issueTokens(user)
}

func (s *UserService) issueTokens(user *model.SysUser) (*TokenPair, error) {
	access, err := utils.GenerateToken(s.JWTCfg, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.GenerateRefreshToken(s.JWTCfg, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Get 查询用户
func (s *UserService) Get(ctx context.Context, id int64) (*model.SysUser, error) {
	user, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}
