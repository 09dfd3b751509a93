package dto

// ================== Integration DTO ==================

// ConnectReq 发起授权请求
type ConnectReq struct {
	Provider string `form:"provider" binding:"required"`
}

// SelectPageReq 页面选择请求
type SelectPageReq struct {
	SessionKey string `json:"session_key" binding:"required"`
	PageID     string `json:"page_id" binding:"required"`
}

// PageOption 候选页面
type PageOption struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// CallbackResp 回调响应
// needs_page_selection=true 时前端渲染页面选择器
type CallbackResp struct {
	Connected          bool         `json:"connected"`
	NeedsPageSelection bool         `json:"needs_page_selection"`
	SessionKey         string       `json:"session_key,omitempty"`
	Pages              []PageOption `json:"pages,omitempty"`
	Provider           string       `json:"provider,omitempty"`
}
