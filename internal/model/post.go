package model

import (
	"errors"
	"time"
)

// ==================== 状态常量 ====================

const (
	// 帖子状态
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"

	// 帖子类型
	PostTypeStandard = "standard"
	PostTypeStory    = "story"
	PostTypeReel     = "reel"

	// 发布失败分类
	// integration: 授权失效/页面丢失，需要用户重新连接，不自动重试
	// transient:   限流/超时，可自动重试
	// permanent:   内容违规/参数错误，不重试
	// timeout:     publishing 状态卡死被兜底任务强制失败
	ErrorKindIntegration = "integration"
	ErrorKindTransient   = "transient"
	ErrorKindPermanent   = "permanent"
	ErrorKindTimeout     = "timeout"
)

// PostStatuses 合法状态全集
var PostStatuses = []string{
	PostStatusDraft, PostStatusScheduled, PostStatusPublishing,
	PostStatusPublished, PostStatusFailed,
}

// MaxCaptionLength 各平台里 Instagram 最严格，统一取 2200
const MaxCaptionLength = 2200

// ==================== 数据库模型 ====================

// Post 社媒帖子
type Post struct {
	BaseModel
	BusinessID int64  `gorm:"index;not null;comment:所属商家ID"`
	CampaignID *int64 `gorm:"index;comment:所属营销活动ID(可空)"`

	Title   string `gorm:"size:140"`
	Caption string `gorm:"size:2200;comment:帖子文案"`

	Status      string     `gorm:"size:32;index;default:draft;comment:帖子状态"`
	ScheduledAt *time.Time `gorm:"index;comment:计划发布时间"`
	PublishedAt *time.Time `gorm:"comment:实际发布时间"`

	PlatformTargets StringSlice `gorm:"type:json;comment:目标平台列表"`
	PostType        string      `gorm:"size:20;default:standard;comment:帖子类型"`

	// 发布结果
	ExternalIDs StringMap `gorm:"type:json;comment:各平台返回的远端帖子ID"`
	// 由外部分析采集器写入，本工作流只读
	Analytics JSONMap `gorm:"type:json;comment:帖子分析数据"`

	ErrorMessage string `gorm:"size:1024;comment:发布错误信息"`
	ErrorKind    string `gorm:"size:20;comment:错误分类"`
	RetryCount   int    `gorm:"default:0;comment:重试次数"`

	// 乐观并发控制：worker 认领时校验，防止并发重试重复发布
	Version int64 `gorm:"default:0;comment:乐观锁版本号"`

	// 关联
	Media []PostMedia `gorm:"foreignKey:PostID"`
}

func (Post) TableName() string {
	return "bizboost_posts"
}

// PostMedia 帖子媒体文件（有序）
type PostMedia struct {
	BaseModel
	PostID      int64  `gorm:"index;not null;comment:帖子ID"`
	SortOrder   int    `gorm:"default:0;comment:排序"`
	StoragePath string `gorm:"size:2048;not null;comment:对象存储URL"`
	MimeType    string `gorm:"size:64;comment:MIME类型"`
}

func (PostMedia) TableName() string {
	return "bizboost_post_media"
}

// ==================== 守卫方法 ====================

var (
	ErrPostImmutable     = errors.New("已发布的帖子不可修改")
	ErrPostNotEditable   = errors.New("当前状态不允许编辑")
	ErrPostNotReschedule = errors.New("当前状态不允许改期")
	ErrPostNotRetryable  = errors.New("只有发布失败的帖子可以重试")
	ErrScheduleInPast    = errors.New("计划发布时间必须晚于当前时间")
	ErrNoPlatformTargets = errors.New("请至少选择一个发布平台")
)

// CanEdit 文案/媒体只允许在 draft/scheduled/failed 状态下编辑
func (p *Post) CanEdit() error {
	switch p.Status {
	case PostStatusDraft, PostStatusScheduled, PostStatusFailed:
		return nil
	case PostStatusPublished:
		return ErrPostImmutable
	default:
		return ErrPostNotEditable
	}
}

// CanReschedule 改期只允许在 draft/scheduled 状态下
func (p *Post) CanReschedule() error {
	switch p.Status {
	case PostStatusDraft, PostStatusScheduled:
		return nil
	case PostStatusPublished:
		return ErrPostImmutable
	default:
		return ErrPostNotReschedule
	}
}

// CanEnterPublishing draft/scheduled/failed 可以进入发布流水线
func (p *Post) CanEnterPublishing() bool {
	switch p.Status {
	case PostStatusDraft, PostStatusScheduled, PostStatusFailed:
		return true
	}
	return false
}

// MarkPublished 发布成功，记录时间与远端ID
func (p *Post) MarkPublished(externalIDs map[string]string) {
	now := time.Now()
	p.Status = PostStatusPublished
	p.PublishedAt = &now
	if p.ExternalIDs == nil {
		p.ExternalIDs = make(StringMap)
	}
	for k, v := range externalIDs {
		p.ExternalIDs[k] = v
	}
	p.ErrorMessage = ""
	p.ErrorKind = ""
}

// MarkFailed 发布失败，保留已成功平台的远端ID以便幂等重试
func (p *Post) MarkFailed(kind, errMsg string) {
	p.Status = PostStatusFailed
	p.ErrorKind = kind
	p.ErrorMessage = errMsg
}

// Duplicate 复制出一个全新草稿（published 帖子唯一的"修改"途径）
func (p *Post) Duplicate() *Post {
	copied := &Post{
		BusinessID:      p.BusinessID,
		Title:           p.Title,
		Caption:         p.Caption,
		Status:          PostStatusDraft,
		PlatformTargets: append(StringSlice{}, p.PlatformTargets...),
		PostType:        p.PostType,
	}
	for _, m := range p.Media {
		copied.Media = append(copied.Media, PostMedia{
			SortOrder:   m.SortOrder,
			StoragePath: m.StoragePath,
			MimeType:    m.MimeType,
		})
	}
	return copied
}

// IsValidPostStatus 校验状态取值
func IsValidPostStatus(s string) bool {
	for _, st := range PostStatuses {
		if st == s {
			return true
		}
	}
	return false
}
