package provider

import (
	"context"
	"fmt"
	"time"

	"bizboost_v1_202608/internal/model"
)

// ==================== 适配器接口 ====================

// TokenSet 平台返回的令牌组（明文，加密由上层负责）
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	// 平台侧用户 ID（部分平台在换 token 时顺带返回）
	ProviderUserID string
}

// Page 可供发布的页面/账号
type Page struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	// 页面级 token（Facebook 特有，其他平台为空）
	AccessToken string `json:"-"`
}

// PublishRequest 单次发布请求
type PublishRequest struct {
	PageID      string
	AccessToken string
	Caption     string
	MediaURLs   []string
	PostType    string
}

// Provider 社媒平台适配器
// 所有方法只做 HTTP 调用，不碰数据库
type Provider interface {
	Name() string
	// GetAuthURL 拼接授权页 URL，state 由上层签发
	GetAuthURL(state string) string
	// ExchangeCode 授权码换令牌
	ExchangeCode(ctx context.Context, code string) (*TokenSet, error)
	// RefreshToken 刷新令牌换新令牌组
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	// ListPages 列出可发布的页面/账号
	ListPages(ctx context.Context, accessToken string) ([]Page, error)
	// Publish 发布一条帖子，返回平台侧帖子 ID
	Publish(ctx context.Context, req PublishRequest) (string, error)
}

// ==================== 错误分类 ====================

// Error 适配器错误，携带分类供发布器决定是否可重试
type Error struct {
	Provider   string
	Kind       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.Message, e.StatusCode)
}

// classifyStatus HTTP 状态码映射到错误分类
// 401/403 授权失效；429/5xx 可重试；其余 4xx 内容或参数问题
func classifyStatus(code int) string {
	switch {
	case code == 401 || code == 403:
		return model.ErrorKindIntegration
	case code == 429 || code >= 500:
		return model.ErrorKindTransient
	default:
		return model.ErrorKindPermanent
	}
}

// newHTTPError 根据响应构造分类错误
func newHTTPError(providerName string, statusCode int, body string) *Error {
	return &Error{
		Provider:   providerName,
		Kind:       classifyStatus(statusCode),
		StatusCode: statusCode,
		Message:    fmt.Sprintf("平台返回异常: %s", body),
	}
}

// newNetworkError 网络层失败一律按 transient 处理
func newNetworkError(providerName string, err error) *Error {
	return &Error{
		Provider: providerName,
		Kind:     model.ErrorKindTransient,
		Message:  fmt.Sprintf("网络请求失败: %v", err),
	}
}

// KindOf 取出错误分类，非适配器错误按 transient 兜底
func KindOf(err error) string {
	if pe, ok := err.(*Error); ok {
		return pe.Kind
	}
	return model.ErrorKindTransient
}
