package service

import (
	"context"
	"time"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 权益解析 ====================

// DenialReason 拒绝原因码，控制器据此生成升级提示
type DenialReason string

const (
	DenialNone               DenialReason = ""
	DenialFeatureLocked      DenialReason = "feature_locked"
	DenialPostQuotaReached   DenialReason = "post_quota_reached"
	DenialCampaignQuota      DenialReason = "campaign_quota_reached"
	DenialIntegrationQuota   DenialReason = "integration_quota_reached"
	DenialTeamQuotaReached   DenialReason = "team_quota_reached"
)

// Entitlements 一次请求内的权益快照
// 中间件在请求边界解析一次，业务代码只查快照不再回表
type Entitlements struct {
	TierCode string
	features map[string]bool

	MaxPostsPerMonth int
	MaxCampaigns     int
	MaxIntegrations  int
	MaxTeamMembers   int
}

// HasFeature 功能开关查询
func (e *Entitlements) HasFeature(key string) bool {
	return e.features[key]
}

// CheckFeature 功能门禁
func (e *Entitlements) CheckFeature(key string) (bool, DenialReason) {
	if e.HasFeature(key) {
		return true, DenialNone
	}
	return false, DenialFeatureLocked
}

// CheckPostQuota 月帖子配额，0 表示不限
func (e *Entitlements) CheckPostQuota(used int64) (bool, DenialReason) {
	if e.MaxPostsPerMonth == 0 || used < int64(e.MaxPostsPerMonth) {
		return true, DenialNone
	}
	return false, DenialPostQuotaReached
}

// CheckCampaignQuota 活动配额
func (e *Entitlements) CheckCampaignQuota(used int64) (bool, DenialReason) {
	if !e.HasFeature(model.FeatureCampaigns) {
		return false, DenialFeatureLocked
	}
	if e.MaxCampaigns == 0 || used < int64(e.MaxCampaigns) {
		return true, DenialNone
	}
	return false, DenialCampaignQuota
}

// CheckIntegrationQuota 平台连接配额
func (e *Entitlements) CheckIntegrationQuota(used int64) (bool, DenialReason) {
	if e.MaxIntegrations == 0 || used < int64(e.MaxIntegrations) {
		return true, DenialNone
	}
	return false, DenialIntegrationQuota
}

// CheckTeamQuota 团队成员配额
func (e *Entitlements) CheckTeamQuota(used int64) (bool, DenialReason) {
	if !e.HasFeature(model.FeatureTeam) {
		return false, DenialFeatureLocked
	}
	if e.MaxTeamMembers == 0 || used < int64(e.MaxTeamMembers) {
		return true, DenialNone
	}
	return false, DenialTeamQuotaReached
}

// ==================== 服务 ====================

// EntitlementService 订阅权益服务
type EntitlementService struct {
	TierRepo repository.TierRepository
	PostRepo repository.PostRepository
}

// NewEntitlementService 工厂方法
func NewEntitlementService(tierRepo repository.TierRepository, postRepo repository.PostRepository) *EntitlementService {
	return &EntitlementService{
		TierRepo: tierRepo,
		PostRepo: postRepo,
	}
}

// Resolve 按商家档位解析权益快照
// 档位查不到时降级为 free，不阻断请求
func (s *EntitlementService) Resolve(ctx context.Context, business *model.Business) (*Entitlements, error) {
	code := business.TierCode
	if code == "" {
		code = model.TierFree
	}

	tier, err := s.TierRepo.GetByCode(ctx, code)
	if err != nil {
		tier, err = s.TierRepo.GetByCode(ctx, model.TierFree)
		if err != nil {
			return nil, err
		}
	}

	features := make(map[string]bool, len(tier.Features))
	for _, f := range tier.Features {
		features[f] = true
	}

	return &Entitlements{
		TierCode:         tier.Code,
		features:         features,
		MaxPostsPerMonth: tier.MaxPostsPerMonth,
		MaxCampaigns:     tier.MaxCampaigns,
		MaxIntegrations:  tier.MaxIntegrations,
		MaxTeamMembers:   tier.MaxTeamMembers,
	}, nil
}

// PostsUsedThisMonth 自然月内已创建的帖子数
func (s *EntitlementService) PostsUsedThisMonth(ctx context.Context, businessID int64) (int64, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.PostRepo.CountCreatedSince(ctx, businessID, monthStart)
}
