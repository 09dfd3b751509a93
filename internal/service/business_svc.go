package service

import (
	"context"
	"errors"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/pkg/utils"
)

// ==================== 输入结构 ====================

// BusinessInput 创建/编辑商家的输入
type BusinessInput struct {
	Name     string
	Industry string
	Phone    string
	Email    string
	Address  string
	City     string
}

var (
	ErrSlugLocked     = errors.New("商家已上架市场目录，地址不可再修改")
	ErrMarketplaceOff = errors.New("当前订阅档位不支持市场目录")
)

// ==================== 服务 ====================

// BusinessService 商家服务
type BusinessService struct {
	Repo       repository.BusinessRepository
	MemberRepo repository.TeamMemberRepository
}

// NewBusinessService 工厂方法
func NewBusinessService(repo repository.BusinessRepository, memberRepo repository.TeamMemberRepository) *BusinessService {
	return &BusinessService{Repo: repo, MemberRepo: memberRepo}
}

// Create 创建商家并把创建者记为 owner 成员
// slug 由商家名生成，冲突时自动追加随机后缀
func (s *BusinessService) Create(ctx context.Context, ownerID int64, input BusinessInput) (*model.Business, error) {
	slug := utils.GenerateSlug(input.Name)
	exists, err := s.Repo.SlugExists(ctx, slug)
	if err != nil {
		return nil, err
	}
	if exists {
		slug = utils.GenerateUniqueSlug(input.Name)
	}

	business := &model.Business{
		OwnerID:  ownerID,
		Name:     input.Name,
		Slug:     slug,
		Industry: input.Industry,
		Phone:    input.Phone,
		Email:    input.Email,
		Address:  input.Address,
		TierCode: model.TierFree,
	}
	if input.City != "" {
		business.City = input.City
	}
	if err := s.Repo.Create(ctx, business); err != nil {
		return nil, err
	}

	member := &model.TeamMember{
		SysUserID:  ownerID,
		BusinessID: business.ID,
		Role:       "owner",
	}
	if err := s.MemberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	return business, nil
}

// Update 编辑商家基础信息（不含 slug）
func (s *BusinessService) Update(ctx context.Context, id int64, input BusinessInput) (*model.Business, error) {
	business, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":     input.Name,
		"industry": input.Industry,
		"phone":    input.Phone,
		"email":    input.Email,
		"address":  input.Address,
	}
	if input.City != "" {
		fields["city"] = input.City
	}
	if err := s.Repo.UpdateFields(ctx, business.ID, fields); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(ctx, id)
}

// UpdateSlug 修改对外地址，上架后锁定
func (s *BusinessService) UpdateSlug(ctx context.Context, id int64, slug string) (*model.Business, error) {
	business, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !business.CanEditSlug() {
		return nil, ErrSlugLocked
	}

	newSlug := utils.GenerateSlug(slug)
	exists, err := s.Repo.SlugExists(ctx, newSlug)
	if err != nil {
		return nil, err
	}
	if exists && newSlug != business.Slug {
		return nil, errors.New("该地址已被占用")
	}

	if err := s.Repo.UpdateFields(ctx, id, map[string]interface{}{"slug": newSlug}); err != nil {
		return nil, err
	}
	business.Slug = newSlug
	return business, nil
}

// CompleteOnboarding 标记开店引导完成
func (s *BusinessService) CompleteOnboarding(ctx context.Context, id int64) error {
	return s.Repo.UpdateFields(ctx, id, map[string]interface{}{"onboarding_completed": true})
}

// ListMarketplace 公开市场目录
func (s *BusinessService) ListMarketplace(ctx context.Context, industry string, page, pageSize int) ([]model.Business, int64, error) {
	return s.Repo.ListMarketplace(ctx, industry, page, pageSize)
}

// SetMarketplaceListed 上架/下架市场目录（需要档位支持）
func (s *BusinessService) SetMarketplaceListed(ctx context.Context, id int64, listed bool, ent *Entitlements) (*model.Business, error) {
	if listed && ent != nil {
		if ok, _ := ent.CheckFeature(model.FeatureMarketplace); !ok {
			return nil, ErrMarketplaceOff
		}
	}
	if err := s.Repo.UpdateFields(ctx, id, map[string]interface{}{"marketplace_listed": listed}); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Get 查询单个商家
func (s *BusinessService) Get(ctx context.Context, id int64) (*model.Business, error) {
	return s.Repo.GetByID(ctx, id)
}

// GetBySlug 对外页面按 slug 查询
func (s *BusinessService) GetBySlug(ctx context.Context, slug string) (*model.Business, error) {
	return s.Repo.GetBySlug(ctx, slug)
}

// ListByOwner 用户名下的商家
func (s *BusinessService) ListByOwner(ctx context.Context, ownerID int64) ([]model.Business, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}
