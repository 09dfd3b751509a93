package model

import (
	"time"
)

// ==================== 常量 ====================

const (
	// 支持的平台
	ProviderFacebook  = "facebook"
	ProviderInstagram = "instagram"
	ProviderWhatsApp  = "whatsapp"
	ProviderTikTok    = "tiktok"

	// 集成状态
	IntegrationStatusActive  = "active"
	IntegrationStatusRevoked = "revoked"
)

// SupportedProviders 支持的平台全集
var SupportedProviders = []string{
	ProviderFacebook, ProviderInstagram, ProviderWhatsApp, ProviderTikTok,
}

// ==================== 数据库模型 ====================

// Integration 商家与社媒平台的 OAuth 凭证绑定
// AccessToken/RefreshToken 使用 AES-GCM 加密后落库
type Integration struct {
	BaseModel
	// 联合唯一索引：一个商家在一个平台只有一条集成记录
	BusinessID int64  `gorm:"index;uniqueIndex:idx_business_provider;not null"`
	Provider   string `gorm:"size:20;uniqueIndex:idx_business_provider;not null"`

	ProviderPageID  string `gorm:"size:64;comment:平台侧页面/账号ID"`
	ProviderUserID  string `gorm:"size:64;comment:平台侧用户ID"`
	DisplayName     string `gorm:"size:140;comment:页面/账号显示名"`

	// 凭证（密文）
	AccessToken    string    `gorm:"size:2048;comment:访问令牌(加密)"`
	RefreshToken   string    `gorm:"size:2048;comment:刷新令牌(加密,可空)"`
	TokenExpiresAt time.Time `gorm:"index;comment:令牌过期时间"`

	Status string  `gorm:"size:20;index;default:active;comment:集成状态"`
	Meta   JSONMap `gorm:"type:json;comment:平台特有的附加数据"`
}

func (Integration) TableName() string {
	return "bizboost_integrations"
}

// ==================== 辅助方法 ====================

// IsUsable 是否可用于发布
func (i *Integration) IsUsable() bool {
	return i.Status == IntegrationStatusActive && i.AccessToken != ""
}

// TokenExpired 令牌是否已过期
func (i *Integration) TokenExpired(now time.Time) bool {
	return !i.TokenExpiresAt.IsZero() && now.After(i.TokenExpiresAt)
}

// HasRefreshToken whatsapp/tiktok 携带刷新令牌，可以自动续期
func (i *Integration) HasRefreshToken() bool {
	return i.RefreshToken != ""
}

// Revoke 断开连接：吊销状态并销毁令牌（不可逆，需重新授权）
func (i *Integration) Revoke() {
	i.Status = IntegrationStatusRevoked
	i.AccessToken = ""
	i.RefreshToken = ""
	i.ProviderPageID = ""
}

// IsValidProvider 校验平台取值
func IsValidProvider(p string) bool {
	for _, v := range SupportedProviders {
		if v == p {
			return true
		}
	}
	return false
}
