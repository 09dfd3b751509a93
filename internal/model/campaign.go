package model

import (
	"errors"
	"time"
)

// ==================== 状态常量 ====================

const (
	// 活动状态
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"

	// 营销目标
	ObjectiveIncreaseSales     = "increase_sales"
	ObjectivePromoteStock      = "promote_stock"
	ObjectiveAnnounceDiscount  = "announce_discount"
	ObjectiveBringBackCustomer = "bring_back_customers"
	ObjectiveGrowFollowers     = "grow_followers"

	// 序列内容类型（固定 4 天轮换）
	SequenceTypeIntro      = "intro"
	SequenceTypeEngagement = "engagement"
	SequenceTypeReminder   = "reminder"
	SequenceTypeCTA        = "cta"
)

// SequenceRotation 序列类型轮换表，type = rotation[(day-1) % 4]
var SequenceRotation = []string{
	SequenceTypeIntro, SequenceTypeEngagement, SequenceTypeReminder, SequenceTypeCTA,
}

// CampaignObjectives 合法营销目标全集
var CampaignObjectives = []string{
	ObjectiveIncreaseSales, ObjectivePromoteStock, ObjectiveAnnounceDiscount,
	ObjectiveBringBackCustomer, ObjectiveGrowFollowers,
}

// ==================== 数据库模型 ====================

// Campaign 营销活动：围绕一个目标生成的限时帖子序列
type Campaign struct {
	BaseModel
	BusinessID int64 `gorm:"index;not null;comment:所属商家ID"`

	Name      string `gorm:"size:140;not null"`
	Objective string `gorm:"size:32;index;comment:营销目标"`
	Status    string `gorm:"size:32;index;default:draft;comment:活动状态"`

	StartDate    *time.Time `gorm:"comment:开始日期"`
	EndDate      *time.Time `gorm:"comment:结束日期"`
	DurationDays int        `gorm:"default:7;comment:活动天数"`

	TargetPlatforms StringSlice `gorm:"type:json;comment:目标平台"`

	// 活动配置：模板ID、自动生成开关、各天发帖时间 ("1"->"09:00")
	TemplateID   string    `gorm:"size:64;comment:文案模板ID"`
	AutoGenerate bool      `gorm:"default:true;comment:是否自动生成序列"`
	PostingTimes StringMap `gorm:"type:json;comment:序列日->发帖时间(HH:MM)"`

	// 关联
	SequenceItems []CampaignPost `gorm:"foreignKey:CampaignID"`
}

func (Campaign) TableName() string {
	return "bizboost_campaigns"
}

// CampaignPost 活动与帖子的连接表，携带序列元数据
type CampaignPost struct {
	BaseModel
	CampaignID int64 `gorm:"index;uniqueIndex:idx_campaign_post;not null"`
	PostID     int64 `gorm:"index;uniqueIndex:idx_campaign_post;not null"`

	SequenceDay  int    `gorm:"index;comment:序列日(1..duration_days)"`
	SequenceType string `gorm:"size:20;comment:内容类型(intro/engagement/reminder/cta)"`

	Post *Post `gorm:"foreignKey:PostID"`
}

func (CampaignPost) TableName() string {
	return "bizboost_campaign_posts"
}

// ==================== 守卫方法 ====================

var (
	ErrCampaignNotDraft     = errors.New("只有草稿状态的活动可以编辑或删除")
	ErrCampaignNotStartable = errors.New("只有草稿状态的活动可以启动")
	ErrCampaignNotPausable  = errors.New("只有进行中的活动可以暂停")
	ErrCampaignNotResumable = errors.New("只有已暂停的活动可以恢复")
	ErrCampaignEmpty        = errors.New("活动至少需要一个帖子才能启动")
	ErrInvalidObjective     = errors.New("无效的营销目标")
)

// CanEdit 编辑/删除守卫
func (c *Campaign) CanEdit() error {
	if c.Status != CampaignStatusDraft {
		return ErrCampaignNotDraft
	}
	return nil
}

// CanStart 启动守卫
func (c *Campaign) CanStart() error {
	if c.Status != CampaignStatusDraft {
		return ErrCampaignNotStartable
	}
	return nil
}

// CanPause 暂停守卫
func (c *Campaign) CanPause() error {
	if c.Status != CampaignStatusActive {
		return ErrCampaignNotPausable
	}
	return nil
}

// CanResume 恢复守卫
func (c *Campaign) CanResume() error {
	if c.Status != CampaignStatusPaused {
		return ErrCampaignNotResumable
	}
	return nil
}

// SequenceTypeForDay 计算某一天的内容类型
func SequenceTypeForDay(day int) string {
	if day < 1 {
		day = 1
	}
	return SequenceRotation[(day-1)%len(SequenceRotation)]
}

// IsValidObjective 校验营销目标取值
func IsValidObjective(o string) bool {
	for _, v := range CampaignObjectives {
		if v == o {
			return true
		}
	}
	return false
}
