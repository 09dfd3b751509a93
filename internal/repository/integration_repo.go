package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// IntegrationRepository 平台集成仓储接口
type IntegrationRepository interface {
	Create(ctx context.Context, integration *model.Integration) error
	GetByID(ctx context.Context, id int64) (*model.Integration, error)
	GetByBusinessAndProvider(ctx context.Context, businessID int64, provider string) (*model.Integration, error)
	ListByBusiness(ctx context.Context, businessID int64) ([]model.Integration, error)
	ListUsableByBusiness(ctx context.Context, businessID int64) ([]model.Integration, error)
	CountActiveByBusiness(ctx context.Context, businessID int64) (int64, error)
	Update(ctx context.Context, integration *model.Integration) error
	UpdateToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	Revoke(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error

	// 令牌巡检相关
	FindExpiring(ctx context.Context, before time.Time, limit int) ([]*model.Integration, error)
	FindExpiredWithoutRefresh(ctx context.Context, now time.Time, limit int) ([]*model.Integration, error)
}

// ==================== Integration 仓储实现 ====================

type integrationRepo struct {
	db *gorm.DB
}

// NewIntegrationRepository 创建集成仓储
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepo{db: db}
}

func (r *integrationRepo) Create(ctx context.Context, integration *model.Integration) error {
	return r.db.WithContext(ctx).Create(integration).Error
}

func (r *integrationRepo) GetByID(ctx context.Context, id int64) (*model.Integration, error) {
	var integration model.Integration
	if err := r.db.WithContext(ctx).First(&integration, id).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepo) GetByBusinessAndProvider(ctx context.Context, businessID int64, provider string) (*model.Integration, error) {
	var integration model.Integration
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND provider = ?", businessID, provider).
		First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepo) ListByBusiness(ctx context.Context, businessID int64) ([]model.Integration, error) {
	var integrations []model.Integration
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("provider ASC").
		Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepo) ListUsableByBusiness(ctx context.Context, businessID int64) ([]model.Integration, error) {
	var integrations []model.Integration
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, model.IntegrationStatusActive).
		Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepo) CountActiveByBusiness(ctx context.Context, businessID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Integration{}).
		Where("business_id = ? AND status = ?", businessID, model.IntegrationStatusActive).
		Count(&count).Error
	return count, err
}

func (r *integrationRepo) Update(ctx context.Context, integration *model.Integration) error {
	return r.db.WithContext(ctx).Save(integration).Error
}

// UpdateToken 整体替换凭证：三个字段一条 UPDATE，不存在部分更新的中间态
func (r *integrationRepo) UpdateToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Integration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
		}).Error
}

// Revoke 吊销集成并清空凭证
func (r *integrationRepo) Revoke(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Integration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           model.IntegrationStatusRevoked,
			"access_token":     "",
			"refresh_token":    "",
			"provider_page_id": "",
		}).Error
}

func (r *integrationRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Integration{}, id).Error
}

// FindExpiring 查找即将过期且可续期的集成（令牌巡检任务用）
func (r *integrationRepo) FindExpiring(ctx context.Context, before time.Time, limit int) ([]*model.Integration, error) {
	var integrations []*model.Integration
	err := r.db.WithContext(ctx).
		Where("status = ? AND refresh_token <> '' AND token_expires_at <= ?",
			model.IntegrationStatusActive, before).
		Limit(limit).
		Find(&integrations).Error
	return integrations, err
}

// FindExpiredWithoutRefresh 已过期且无法自动续期的集成（只能提醒用户重连）
func (r *integrationRepo) FindExpiredWithoutRefresh(ctx context.Context, now time.Time, limit int) ([]*model.Integration, error) {
	var integrations []*model.Integration
	err := r.db.WithContext(ctx).
		Where("status = ? AND refresh_token = '' AND token_expires_at <= ?",
			model.IntegrationStatusActive, now).
		Limit(limit).
		Find(&integrations).Error
	return integrations, err
}
