package service

import (
	"context"
	"testing"
	"time"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
)

// ==================== Resolve 测试 ====================

func TestEntitlementService_Resolve(t *testing.T) {
	db := setupServiceTestDB(t)
	tierRepo := repository.NewTierRepository(db)
	if err := tierRepo.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("播种档位失败: %v", err)
	}
	svc := NewEntitlementService(tierRepo, repository.NewPostRepository(db))

	ctx := context.Background()

	// growth 档位带活动功能
	ent, err := svc.Resolve(ctx, &model.Business{TierCode: model.TierGrowth})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ent.TierCode != model.TierGrowth {
		t.Errorf("TierCode = %s", ent.TierCode)
	}
	if !ent.HasFeature(model.FeatureCampaigns) {
		t.Error("growth 档应有 campaigns 功能")
	}
	if ent.HasFeature(model.FeatureTeam) {
		t.Error("growth 档不应有 team 功能")
	}

	// 空档位 / 未知档位降级到 free
	for _, code := range []string{"", "legacy_gold"} {
		ent, err = svc.Resolve(ctx, &model.Business{TierCode: code})
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", code, err)
		}
		if ent.TierCode != model.TierFree {
			t.Errorf("Resolve(%q).TierCode = %s, want free", code, ent.TierCode)
		}
	}
}

// ==================== 配额检查测试 ====================

func TestEntitlements_QuotaChecks(t *testing.T) {
	free := &Entitlements{
		TierCode:         model.TierFree,
		features:         map[string]bool{},
		MaxPostsPerMonth: 10,
		MaxIntegrations:  1,
	}

	if ok, _ := free.CheckPostQuota(9); !ok {
		t.Error("额度内应放行")
	}
	if ok, reason := free.CheckPostQuota(10); ok || reason != DenialPostQuotaReached {
		t.Errorf("满额应拒绝, got ok=%v reason=%s", ok, reason)
	}

	// 没有活动功能时给 feature_locked 而不是配额原因
	if ok, reason := free.CheckCampaignQuota(0); ok || reason != DenialFeatureLocked {
		t.Errorf("free 档活动检查 = %v/%s, want false/feature_locked", ok, reason)
	}

	if ok, reason := free.CheckIntegrationQuota(1); ok || reason != DenialIntegrationQuota {
		t.Errorf("集成满额 = %v/%s", ok, reason)
	}

	// 0 一律表示不限
	unlimited := &Entitlements{
		TierCode: model.TierBusiness,
		features: map[string]bool{model.FeatureCampaigns: true, model.FeatureTeam: true},
	}
	if ok, _ := unlimited.CheckPostQuota(1_000_000); !ok {
		t.Error("0 上限应不设限")
	}
	if ok, _ := unlimited.CheckCampaignQuota(500); !ok {
		t.Error("0 上限的活动额度应不设限")
	}
	if ok, _ := unlimited.CheckTeamQuota(50); !ok {
		t.Error("0 上限的团队额度应不设限")
	}
}

// ==================== 月用量统计测试 ====================

func TestEntitlementService_PostsUsedThisMonth(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewEntitlementService(repository.NewTierRepository(db), repository.NewPostRepository(db))
	ctx := context.Background()

	// 本月两条
	for i := 0; i < 2; i++ {
		post := &model.Post{BusinessID: 1, Caption: "本月帖", Status: model.PostStatusDraft}
		if err := db.Create(post).Error; err != nil {
			t.Fatalf("写入帖子失败: %v", err)
		}
	}
	// 上月一条：回拨 created_at
	old := &model.Post{BusinessID: 1, Caption: "上月帖", Status: model.PostStatusDraft}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}
	lastMonth := time.Now().AddDate(0, -1, 0)
	if err := db.Model(old).UpdateColumn("created_at", lastMonth).Error; err != nil {
		t.Fatalf("回拨创建时间失败: %v", err)
	}
	// 其他商家一条
	other := &model.Post{BusinessID: 2, Caption: "别家的帖", Status: model.PostStatusDraft}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}

	used, err := svc.PostsUsedThisMonth(ctx, 1)
	if err != nil {
		t.Fatalf("PostsUsedThisMonth() error = %v", err)
	}
	if used != 2 {
		t.Errorf("used = %d, want 2", used)
	}
}
