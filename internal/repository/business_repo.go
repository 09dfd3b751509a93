package repository

import (
	"context"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// BusinessRepository 商家仓储接口
type BusinessRepository interface {
	Create(ctx context.Context, business *model.Business) error
	GetByID(ctx context.Context, id int64) (*model.Business, error)
	GetBySlug(ctx context.Context, slug string) (*model.Business, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Business, error)
	Update(ctx context.Context, business *model.Business) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListMarketplace(ctx context.Context, industry string, page, pageSize int) ([]model.Business, int64, error)
}

// TeamMemberRepository 团队成员仓储接口
type TeamMemberRepository interface {
	Create(ctx context.Context, member *model.TeamMember) error
	GetByUserAndBusiness(ctx context.Context, userID, businessID int64) (*model.TeamMember, error)
	ListByBusiness(ctx context.Context, businessID int64) ([]model.TeamMember, error)
	CountByBusiness(ctx context.Context, businessID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// ==================== Business 仓储实现 ====================

type businessRepo struct {
	db *gorm.DB
}

// NewBusinessRepository 创建商家仓储
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepo{db: db}
}

func (r *businessRepo) Create(ctx context.Context, business *model.Business) error {
	return r.db.WithContext(ctx).Create(business).Error
}

func (r *businessRepo) GetByID(ctx context.Context, id int64) (*model.Business, error) {
	var business model.Business
	if err := r.db.WithContext(ctx).First(&business, id).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepo) GetBySlug(ctx context.Context, slug string) (*model.Business, error) {
	var business model.Business
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Business, error) {
	var businesses []model.Business
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&businesses).Error
	return businesses, err
}

func (r *businessRepo) Update(ctx context.Context, business *model.Business) error {
	return r.db.WithContext(ctx).Save(business).Error
}

func (r *businessRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Business{}).Where("id = ?", id).Updates(fields).Error
}

func (r *businessRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Business{}, id).Error
}

func (r *businessRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// ListMarketplace 市场目录：只展示已上架的活跃商家
func (r *businessRepo) ListMarketplace(ctx context.Context, industry string, page, pageSize int) ([]model.Business, int64, error) {
	var businesses []model.Business
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("marketplace_listed = ? AND is_active = ?", true, true)
	if industry != "" {
		query = query.Where("industry = ?", industry)
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

	err := query.Order("name ASC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&businesses).Error
	if err != nil {
		return nil, 0, err
	}

	return businesses, total, nil
}

// ==================== TeamMember 仓储实现 ====================

type teamMemberRepo struct {
	db *gorm.DB
}

// NewTeamMemberRepository 创建团队成员仓储
func NewTeamMemberRepository(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepo{db: db}
}

func (r *teamMemberRepo) Create(ctx context.Context, member *model.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamMemberRepo) GetByUserAndBusiness(ctx context.Context, userID, businessID int64) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).
		Where("sys_user_id = ? AND business_id = ?", userID, businessID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *teamMemberRepo) ListByBusiness(ctx context.Context, businessID int64) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Find(&members).Error
	return members, err
}

func (r *teamMemberRepo) CountByBusiness(ctx context.Context, businessID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TeamMember{}).
		Where("business_id = ?", businessID).
		Count(&count).Error
	return count, err
}

func (r *teamMemberRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.TeamMember{}, id).Error
}
