package model

// ==================== 订阅档位 ====================

const (
	TierFree     = "free"
	TierStarter  = "starter"
	TierGrowth   = "growth"
	TierBusiness = "business"
)

// 功能开关 key
const (
	FeatureAutoPosting = "auto_posting"
	FeatureCampaigns   = "campaigns"
	FeatureMarketplace = "marketplace"
	FeatureTeam        = "team"
	FeatureAnalytics   = "analytics"
)

// SubscriptionTier 订阅档位定义（功能开关 + 用量上限）
// 作为 Entitlements 的数据来源，按 code 查一次即可
type SubscriptionTier struct {
	BaseModel
	Code string `gorm:"size:32;uniqueIndex;not null"`
	Name string `gorm:"size:64;not null"`

	// 月费以分存储
	MonthlyPrice int64  `gorm:"default:0;comment:月费(分)"`
	CurrencyCode string `gorm:"size:3;default:'ZMW'"`

	Features StringSlice `gorm:"type:json;comment:功能开关列表"`

	// 用量上限，0 表示不限
	MaxPostsPerMonth int `gorm:"default:0"`
	MaxCampaigns     int `gorm:"default:0"`
	MaxIntegrations  int `gorm:"default:0"`
	MaxTeamMembers   int `gorm:"default:0"`

	IsActive bool `gorm:"default:true"`
}

func (SubscriptionTier) TableName() string {
	return "subscription_tiers"
}

// DefaultTiers 内置档位，首次启动时播种
func DefaultTiers() []SubscriptionTier {
	return []SubscriptionTier{
		{
			Code: TierFree, Name: "Free",
			Features:         StringSlice{},
			MaxPostsPerMonth: 10, MaxCampaigns: 0, MaxIntegrations: 1, MaxTeamMembers: 1,
		},
		{
			Code: TierStarter, Name: "Starter", MonthlyPrice: 15000,
			Features:         StringSlice{FeatureAutoPosting},
			MaxPostsPerMonth: 60, MaxCampaigns: 2, MaxIntegrations: 2, MaxTeamMembers: 2,
		},
		{
			Code: TierGrowth, Name: "Growth", MonthlyPrice: 35000,
			Features:         StringSlice{FeatureAutoPosting, FeatureCampaigns, FeatureAnalytics},
			MaxPostsPerMonth: 300, MaxCampaigns: 10, MaxIntegrations: 4, MaxTeamMembers: 5,
		},
		{
			Code: TierBusiness, Name: "Business", MonthlyPrice: 75000,
			Features: StringSlice{
				FeatureAutoPosting, FeatureCampaigns, FeatureAnalytics,
				FeatureMarketplace, FeatureTeam,
			},
			// 0 = 不限
			MaxPostsPerMonth: 0, MaxCampaigns: 0, MaxIntegrations: 0, MaxTeamMembers: 0,
		},
	}
}
