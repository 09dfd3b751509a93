package dto

// ================== Business DTO ==================

// CreateBusinessReq 创建商家请求
type CreateBusinessReq struct {
	Name     string `json:"name" binding:"required,max=140"`
	Industry string `json:"industry"`
	Phone    string `json:"phone"`
	Email    string `json:"email" binding:"omitempty,email"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// UpdateBusinessReq 编辑商家请求
type UpdateBusinessReq struct {
	Name     string `json:"name" binding:"required,max=140"`
	Industry string `json:"industry"`
	Phone    string `json:"phone"`
	Email    string `json:"email" binding:"omitempty,email"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// UpdateSlugReq 修改对外地址请求
type UpdateSlugReq struct {
	Slug string `json:"slug" binding:"required,max=140"`
}

// MarketplaceListReq 市场目录查询
type MarketplaceListReq struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Industry string `form:"industry"`
}
