package dto

import "time"

// ================== CRM DTO ==================

// CustomerReq 客户创建/编辑请求
type CustomerReq struct {
	Name  string   `json:"name" binding:"required,max=140"`
	Phone string   `json:"phone"`
	Email string   `json:"email" binding:"omitempty,email"`
	Tags  []string `json:"tags"`
	Note  string   `json:"note"`
}

// CustomerListReq 客户列表请求
type CustomerListReq struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Keyword  string `form:"keyword"`
}

// ProductReq 商品创建/编辑请求
type ProductReq struct {
	Name        string  `json:"name" binding:"required,max=140"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	StockCount  int     `json:"stock_count"`
	ImageURL    string  `json:"image_url"`
}

// SaleReq 销售记录请求
type SaleReq struct {
	CustomerID *int64     `json:"customer_id"`
	ProductID  *int64     `json:"product_id"`
	Amount     float64    `json:"amount" binding:"required,gt=0"`
	Quantity   int        `json:"quantity"`
	Channel    string     `json:"channel"`
	Note       string     `json:"note"`
	SoldAt     *time.Time `json:"sold_at"`
}

// SaleListReq 销售列表请求
type SaleListReq struct {
	Page     int        `form:"page,default=1"`
	PageSize int        `form:"page_size,default=20"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}

// ListResp 通用分页响应
type ListResp struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
