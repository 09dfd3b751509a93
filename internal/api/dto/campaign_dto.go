package dto

import "time"

// ================== Campaign DTO ==================

// CreateCampaignReq 创建活动请求
type CreateCampaignReq struct {
	Name            string            `json:"name" binding:"required,max=140"`
	Objective       string            `json:"objective" binding:"required"`
	DurationDays    int               `json:"duration_days" binding:"omitempty,min=1,max=31"`
	TargetPlatforms []string          `json:"target_platforms"`
	TemplateID      string            `json:"template_id"`
	AutoGenerate    bool              `json:"auto_generate"`
	PostingTimes    map[string]string `json:"posting_times"`
}

// UpdateCampaignReq 编辑活动请求
type UpdateCampaignReq struct {
	Name            string            `json:"name" binding:"required,max=140"`
	Objective       string            `json:"objective"`
	DurationDays    int               `json:"duration_days" binding:"omitempty,min=1,max=31"`
	TargetPlatforms []string          `json:"target_platforms"`
	PostingTimes    map[string]string `json:"posting_times"`
}

// StartCampaignReq 启动活动请求
type StartCampaignReq struct {
	StartDate time.Time `json:"start_date" binding:"required"`
}

// CampaignListReq 活动列表请求
type CampaignListReq struct {
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
	Status    string `form:"status"`
	Objective string `form:"objective"`
}

// CampaignListResp 活动列表响应
type CampaignListResp struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
