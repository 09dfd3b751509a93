package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// UserRepository 系统用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *model.SysUser) error
	GetByID(ctx context.Context, id int64) (*model.SysUser, error)
	GetByUsername(ctx context.Context, username string) (*model.SysUser, error)
	GetByEmail(ctx context.Context, email string) (*model.SysUser, error)
	Update(ctx context.Context, user *model.SysUser) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// TierRepository 订阅档位仓储接口
type TierRepository interface {
	GetByCode(ctx context.Context, code string) (*model.SubscriptionTier, error)
	List(ctx context.Context) ([]model.SubscriptionTier, error)
	SeedDefaults(ctx context.Context) error
}

// ==================== SysUser 仓储实现 ====================

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.SysUser, error) {
	var user model.SysUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SysUser{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

// ==================== SubscriptionTier 仓储实现 ====================

type tierRepo struct {
	db *gorm.DB
}

// NewTierRepository 创建订阅档位仓储
func NewTierRepository(db *gorm.DB) TierRepository {
	return &tierRepo{db: db}
}

func (r *tierRepo) GetByCode(ctx context.Context, code string) (*model.SubscriptionTier, error) {
	var tier model.SubscriptionTier
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *tierRepo) List(ctx context.Context) ([]model.SubscriptionTier, error) {
	var tiers []model.SubscriptionTier
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("monthly_price ASC").
		Find(&tiers).Error
	return tiers, err
}

// SeedDefaults 播种内置档位，已存在的跳过
func (r *tierRepo) SeedDefaults(ctx context.Context) error {
	for _, tier := range model.DefaultTiers() {
		var existing model.SubscriptionTier
		err := r.db.WithContext(ctx).Where("code = ?", tier.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		t := tier
		if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}
