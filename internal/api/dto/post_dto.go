package dto

import "time"

// ================== Post DTO ==================

// PostMediaReq 帖子媒体项
type PostMediaReq struct {
	StoragePath string `json:"storage_path" binding:"required"`
	MimeType    string `json:"mime_type"`
	SortOrder   int    `json:"sort_order"`
}

// CreatePostReq 创建帖子请求
type CreatePostReq struct {
	Title           string         `json:"title" binding:"max=140"`
	Caption         string         `json:"caption" binding:"required,max=2200"`
	PostType        string         `json:"post_type"`
	PlatformTargets []string       `json:"platform_targets"`
	ScheduledAt     *time.Time     `json:"scheduled_at"`
	Media           []PostMediaReq `json:"media"`
}

// UpdatePostReq 编辑帖子请求
type UpdatePostReq struct {
	Title           string         `json:"title" binding:"max=140"`
	Caption         string         `json:"caption" binding:"required,max=2200"`
	PostType        string         `json:"post_type"`
	PlatformTargets []string       `json:"platform_targets"`
	Media           []PostMediaReq `json:"media"`
}

// ReschedulePostReq 改期请求
type ReschedulePostReq struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// PostListReq 帖子列表请求
type PostListReq struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Status     string `form:"status"`
	CampaignID int64  `form:"campaign_id"`
}

// PostListResp 帖子列表响应
type PostListResp struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
