package service

import (
	"context"
	"time"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 服务 ====================

// CRMService 轻量 CRM（客户/商品/销售记录）
type CRMService struct {
	CustomerRepo repository.CustomerRepository
	ProductRepo  repository.ProductRepository
	SaleRepo     repository.SaleRepository
	Notifier     Notifier
}

// NewCRMService 工厂方法
func NewCRMService(
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	notifier Notifier,
) *CRMService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CRMService{
		CustomerRepo: customerRepo,
		ProductRepo:  productRepo,
		SaleRepo:     saleRepo,
		Notifier:     notifier,
	}
}

// ==================== 客户 ====================

func (s *CRMService) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	return s.CustomerRepo.Create(ctx, customer)
}

func (s *CRMService) UpdateCustomer(ctx context.Context, businessID, id int64, update *model.Customer) (*model.Customer, error) {
	customer, err := s.CustomerRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	customer.Name = update.Name
	customer.Phone = update.Phone
	customer.Email = update.Email
	customer.Note = update.Note
	if update.Tags != nil {
		customer.Tags = update.Tags
	}
	if err := s.CustomerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CRMService) DeleteCustomer(ctx context.Context, businessID, id int64) error {
	customer, err := s.CustomerRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	return s.CustomerRepo.Delete(ctx, customer.ID)
}

func (s *CRMService) ListCustomers(ctx context.Context, businessID int64, keyword string, page, pageSize int) ([]model.Customer, int64, error) {
	return s.CustomerRepo.List(ctx, businessID, keyword, page, pageSize)
}

// ==================== 商品 ====================

func (s *CRMService) CreateProduct(ctx context.Context, product *model.Product) error {
	return s.ProductRepo.Create(ctx, product)
}

func (s *CRMService) UpdateProduct(ctx context.Context, businessID, id int64, update *model.Product) (*model.Product, error) {
	product, err := s.ProductRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	product.Name = update.Name
	product.Description = update.Description
	product.PriceAmount = update.PriceAmount
	product.ImageURL = update.ImageURL
	product.StockCount = update.StockCount
	if err := s.ProductRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CRMService) DeleteProduct(ctx context.Context, businessID, id int64) error {
	product, err := s.ProductRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	return s.ProductRepo.Delete(ctx, product.ID)
}

func (s *CRMService) ListProducts(ctx context.Context, businessID int64, page, pageSize int) ([]model.Product, int64, error) {
	return s.ProductRepo.List(ctx, businessID, page, pageSize)
}

// ==================== 销售记录 ====================

// RecordSale 记一笔销售，并推送到商家频道
func (s *CRMService) RecordSale(ctx context.Context, sale *model.Sale) error {
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now()
	}

	if err := s.SaleRepo.Create(ctx, sale); err != nil {
		return err
	}

	// 客户最近购买时间顺手更新
	if sale.CustomerID != nil {
		if customer, err := s.CustomerRepo.GetForBusiness(ctx, sale.BusinessID, *sale.CustomerID); err == nil {
			customer.LastPurchaseAt = &sale.SoldAt
			_ = s.CustomerRepo.Update(ctx, customer)
		}
	}

	s.Notifier.Notify(sale.BusinessID, "", realtime.EventSaleCreated, map[string]interface{}{
		"sale_id": sale.ID,
		"amount":  sale.Amount,
		"channel": sale.Channel,
	})
	return nil
}

func (s *CRMService) ListSales(ctx context.Context, businessID int64, from, to time.Time, page, pageSize int) ([]model.Sale, int64, error) {
	return s.SaleRepo.List(ctx, businessID, from, to, page, pageSize)
}

// SalesSummary 近 30 天销售摘要
type SalesSummary struct {
	TotalAmount int64 `json:"total_amount"`
	SocialCount int64 `json:"social_count"`
}

// Summary 简单统计，社媒渠道单算
func (s *CRMService) Summary(ctx context.Context, businessID int64) (*SalesSummary, error) {
	since := time.Now().AddDate(0, 0, -30)
	total, err := s.SaleRepo.SumAmountSince(ctx, businessID, since)
	if err != nil {
		return nil, err
	}
	social, err := s.SaleRepo.CountByChannel(ctx, businessID, "social", since)
	if err != nil {
		return nil, err
	}
	return &SalesSummary{TotalAmount: total, SocialCount: social}, nil
}
