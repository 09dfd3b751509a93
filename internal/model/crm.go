package model

import "time"

// 简单的租户内 CRUD 实体：客户/商品/销售
// 没有复杂不变式，仅外键归属 + is_active 软开关

// Customer 客户
type Customer struct {
	BaseModel
	BusinessID int64 `gorm:"index;not null;comment:所属商家ID"`

	Name  string `gorm:"size:140;not null"`
	Phone string `gorm:"size:32;index"`
	Email string `gorm:"size:100"`

	Tags     StringSlice `gorm:"type:json;comment:客户标签"`
	Note     string      `gorm:"type:text"`
	IsActive bool        `gorm:"default:true"`

	LastPurchaseAt *time.Time `gorm:"comment:最近购买时间"`
}

func (Customer) TableName() string {
	return "bizboost_customers"
}

// Product 商品
type Product struct {
	BaseModel
	BusinessID int64 `gorm:"index;not null;comment:所属商家ID"`

	Name        string `gorm:"size:140;not null"`
	Description string `gorm:"type:text"`
	// 价格以分存储，避免浮点误差
	PriceAmount  int64  `gorm:"comment:价格(分)"`
	CurrencyCode string `gorm:"size:3;default:'ZMW'"`
	StockCount   int    `gorm:"default:0;comment:库存"`
	ImageURL     string `gorm:"size:2048"`
	IsActive     bool   `gorm:"default:true"`
}

func (Product) TableName() string {
	return "bizboost_products"
}

// GetPrice 获取价格（浮点数）
func (p *Product) GetPrice() float64 {
	return float64(p.PriceAmount) / 100
}

// SetPrice 设置价格（浮点数）
func (p *Product) SetPrice(price float64) {
	p.PriceAmount = int64(price * 100)
}

// Sale 销售记录
type Sale struct {
	BaseModel
	BusinessID int64  `gorm:"index;not null;comment:所属商家ID"`
	CustomerID *int64 `gorm:"index;comment:客户ID(可空,散客)"`
	ProductID  *int64 `gorm:"index;comment:商品ID(可空)"`

	Amount       int64  `gorm:"not null;comment:成交金额(分)"`
	CurrencyCode string `gorm:"size:3;default:'ZMW'"`
	Quantity     int    `gorm:"default:1"`
	Channel      string `gorm:"size:32;comment:成交渠道(walk_in/whatsapp/facebook/...)"`
	Note         string `gorm:"size:512"`

	SoldAt time.Time `gorm:"index;comment:成交时间"`
}

func (Sale) TableName() string {
	return "bizboost_sales"
}
