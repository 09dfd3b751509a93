package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// CampaignRepository 营销活动仓储接口
type CampaignRepository interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetForBusiness(ctx context.Context, businessID, id int64) (*model.Campaign, error)
	Update(ctx context.Context, campaign *model.Campaign) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter CampaignFilter) ([]model.Campaign, int64, error)
	CountByBusiness(ctx context.Context, businessID int64) (int64, error)

	// 序列执行相关
	FindActive(ctx context.Context, limit int) ([]*model.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// CampaignPostRepository 活动-帖子连接表仓储接口
type CampaignPostRepository interface {
	CreateBatch(ctx context.Context, items []model.CampaignPost) error
	GetByCampaignID(ctx context.Context, campaignID int64) ([]model.CampaignPost, error)
	GetByDay(ctx context.Context, campaignID int64, day int) ([]model.CampaignPost, error)
	CountByCampaignID(ctx context.Context, campaignID int64) (int64, error)
	DeleteByCampaignID(ctx context.Context, campaignID int64) error
}

// CampaignFilter 活动列表过滤条件
type CampaignFilter struct {
	BusinessID int64
	Status     string
	Objective  string
	Page       int
	PageSize   int
}

// ==================== Campaign 仓储实现 ====================

type campaignRepo struct {
	db *gorm.DB
}

// NewCampaignRepository 创建营销活动仓储
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepo{db: db}
}

func (r *campaignRepo) Create(ctx context.Context, campaign *model.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *campaignRepo) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.WithContext(ctx).
		Preload("SequenceItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_day ASC")
		}).
		Preload("SequenceItems.Post").
		First(&campaign, id).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepo) GetForBusiness(ctx context.Context, businessID, id int64) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.WithContext(ctx).
		Preload("SequenceItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_day ASC")
		}).
		Preload("SequenceItems.Post").
		Where("business_id = ?", businessID).
		First(&campaign, id).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *model.Campaign) error {
	return r.db.WithContext(ctx).Save(campaign).Error
}

func (r *campaignRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Campaign{}).Where("id = ?", id).Updates(fields).Error
}

func (r *campaignRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Campaign{}, id).Error
}

func (r *campaignRepo) List(ctx context.Context, filter CampaignFilter) ([]model.Campaign, int64, error) {
	var campaigns []model.Campaign
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Campaign{})

	if filter.BusinessID > 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Objective != "" {
		query = query.Where("objective = ?", filter.Objective)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *campaignRepo) CountByBusiness(ctx context.Context, businessID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("business_id = ?", businessID).
		Count(&count).Error
	return count, err
}

// FindActive 查找进行中的活动（序列执行任务用）
func (r *campaignRepo) FindActive(ctx context.Context, limit int) ([]*model.Campaign, error) {
	var campaigns []*model.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ?", model.CampaignStatusActive).
		Limit(limit).
		Find(&campaigns).Error
	return campaigns, err
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ==================== CampaignPost 仓储实现 ====================

type campaignPostRepo struct {
	db *gorm.DB
}

// NewCampaignPostRepository 创建活动帖子连接仓储
func NewCampaignPostRepository(db *gorm.DB) CampaignPostRepository {
	return &campaignPostRepo{db: db}
}

func (r *campaignPostRepo) CreateBatch(ctx context.Context, items []model.CampaignPost) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *campaignPostRepo) GetByCampaignID(ctx context.Context, campaignID int64) ([]model.CampaignPost, error) {
	var items []model.CampaignPost
	err := r.db.WithContext(ctx).
		Preload("Post").
		Where("campaign_id = ?", campaignID).
		Order("sequence_day ASC").
		Find(&items).Error
	return items, err
}

func (r *campaignPostRepo) GetByDay(ctx context.Context, campaignID int64, day int) ([]model.CampaignPost, error) {
	var items []model.CampaignPost
	err := r.db.WithContext(ctx).
		Preload("Post").
		Where("campaign_id = ? AND sequence_day = ?", campaignID, day).
		Find(&items).Error
	return items, err
}

func (r *campaignPostRepo) CountByCampaignID(ctx context.Context, campaignID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CampaignPost{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error
	return count, err
}

func (r *campaignPostRepo) DeleteByCampaignID(ctx context.Context, campaignID int64) error {
	return r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Delete(&model.CampaignPost{}).Error
}

// ==================== 事务支持 ====================

// CampaignUnitOfWork 活动工作单元（序列生成需要跨表原子写入）
type CampaignUnitOfWork struct {
	db        *gorm.DB
	Campaigns CampaignRepository
	Items     CampaignPostRepository
	Posts     PostRepository
}

// NewCampaignUnitOfWork 创建工作单元
func NewCampaignUnitOfWork(db *gorm.DB) *CampaignUnitOfWork {
	return &CampaignUnitOfWork{
		db:        db,
		Campaigns: NewCampaignRepository(db),
		Items:     NewCampaignPostRepository(db),
		Posts:     NewPostRepository(db),
	}
}

// Transaction 执行事务
func (u *CampaignUnitOfWork) Transaction(ctx context.Context, fn func(uow *CampaignUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &CampaignUnitOfWork{
			db:        tx,
			Campaigns: NewCampaignRepository(tx),
			Items:     NewCampaignPostRepository(tx),
			Posts:     NewPostRepository(tx),
		}
		return fn(txUow)
	})
}

// ElapsedDays 计算活动开始以来经过的完整天数 (开始当天为第 1 天)
func ElapsedDays(start time.Time, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start).Hours()/24) + 1
}
