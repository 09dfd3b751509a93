package model

// Business 商家（租户根实体）
// 所有业务数据都归属于一个 Business，用 slug 生成对外的迷你官网地址
type Business struct {
	BaseModel
	// 1. 核心身份
	OwnerID int64  `gorm:"index;not null;comment:老板的SysUserID"`
	Name    string `gorm:"size:140;not null"`
	// slug 用于公开 URL，一旦上架 marketplace 不可再修改
	Slug     string `gorm:"size:140;uniqueIndex;not null"`
	Industry string `gorm:"size:64;index;comment:行业(restaurant/salon/retail/...)"`

	// 2. 联系方式
	Phone    string `gorm:"size:32"`
	Email    string `gorm:"size:100"`
	Address  string `gorm:"size:255"`
	City     string `gorm:"size:64;default:'Lusaka'"`
	Country  string `gorm:"size:64;default:'Zambia'"`
	Currency string `gorm:"size:3;default:'ZMW'"`

	// 3. 状态标记
	OnboardingCompleted bool `gorm:"default:false"`
	MarketplaceListed   bool `gorm:"default:false"`
	IsActive            bool `gorm:"default:true"`

	// 4. 订阅档位
	TierCode string `gorm:"size:32;index;default:'free';comment:当前订阅档位code"`

	// 关联关系
	Posts        []Post        `gorm:"foreignKey:BusinessID"`
	Campaigns    []Campaign    `gorm:"foreignKey:BusinessID"`
	Integrations []Integration `gorm:"foreignKey:BusinessID"`
	Customers    []Customer    `gorm:"foreignKey:BusinessID"`
	Products     []Product     `gorm:"foreignKey:BusinessID"`
	Members      []TeamMember  `gorm:"foreignKey:BusinessID"`
}

func (Business) TableName() string {
	return "businesses"
}

// CanEditSlug 上架 marketplace 后 slug 进入公开 URL，禁止修改
func (b *Business) CanEditSlug() bool {
	return !b.MarketplaceListed
}
