package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// CustomerRepository 客户仓储接口
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetForBusiness(ctx context.Context, businessID, id int64) (*model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, businessID int64, keyword string, page, pageSize int) ([]model.Customer, int64, error)
}

// ProductRepository 商品仓储接口
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetForBusiness(ctx context.Context, businessID, id int64) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, businessID int64, page, pageSize int) ([]model.Product, int64, error)
}

// SaleRepository 销售记录仓储接口
type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	List(ctx context.Context, businessID int64, from, to time.Time, page, pageSize int) ([]model.Sale, int64, error)
	SumAmountSince(ctx context.Context, businessID int64, since time.Time) (int64, error)
	CountByChannel(ctx context.Context, businessID int64, channel string, since time.Time) (int64, error)
}

// ==================== Customer 仓储实现 ====================

type customerRepo struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓储
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepo) GetForBusiness(ctx context.Context, businessID, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) Update(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *customerRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Customer{}, id).Error
}

func (r *customerRepo) List(ctx context.Context, businessID int64, keyword string, page, pageSize int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("business_id = ?", businessID)
	if keyword != "" {
		query = query.Where("name LIKE ? OR phone LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&customers).Error
	if err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

// ==================== Product 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetForBusiness(ctx context.Context, businessID, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *productRepo) List(ctx context.Context, businessID int64, page, pageSize int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("business_id = ?", businessID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ==================== Sale 仓储实现 ====================

type saleRepo struct {
	db *gorm.DB
}

// NewSaleRepository 创建销售记录仓储
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepo{db: db}
}

func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepo) List(ctx context.Context, businessID int64, from, to time.Time, page, pageSize int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("business_id = ?", businessID)
	if !from.IsZero() {
		query = query.Where("sold_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("sold_at <= ?", to)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.Order("sold_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&sales).Error
	if err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

// SumAmountSince 统计时间段内销售额（分）
func (r *saleRepo) SumAmountSince(ctx context.Context, businessID int64, since time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("business_id = ? AND sold_at >= ?", businessID, since).
		Scan(&sum).Error
	return sum, err
}

func (r *saleRepo) CountByChannel(ctx context.Context, businessID int64, channel string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("business_id = ? AND channel = ? AND sold_at >= ?", businessID, channel, since).
		Count(&count).Error
	return count, err
}
