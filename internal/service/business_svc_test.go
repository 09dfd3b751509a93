package service

import (
	"context"
	"errors"
	"testing"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 测试辅助函数 ====================

func newBusinessSvc(t *testing.T) *BusinessService {
	db := setupServiceTestDB(t)
	return NewBusinessService(
		repository.NewBusinessRepository(db),
		repository.NewTeamMemberRepository(db),
	)
}

// ==================== Create 测试 ====================

func TestBusinessService_Create(t *testing.T) {
	svc := newBusinessSvc(t)
	ctx := context.Background()

	business, err := svc.Create(ctx, 7, BusinessInput{
		Name:     "Lusaka Fresh Produce",
		Industry: "retail",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if business.Slug != "lusaka-fresh-produce" {
		t.Errorf("Slug = %s", business.Slug)
	}
	if business.TierCode != model.TierFree {
		t.Errorf("新商家档位 = %s, want free", business.TierCode)
	}

	// 创建者自动成为 owner 成员
	member, err := svc.MemberRepo.GetByUserAndBusiness(ctx, 7, business.ID)
	if err != nil {
		t.Fatalf("查询成员失败: %v", err)
	}
	if member.Role != "owner" {
		t.Errorf("Role = %s, want owner", member.Role)
	}
}

func TestBusinessService_Create_SlugCollision(t *testing.T) {
	svc := newBusinessSvc(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, BusinessInput{Name: "Kabwe Salon"})
	if err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	second, err := svc.Create(ctx, 2, BusinessInput{Name: "Kabwe Salon"})
	if err != nil {
		t.Fatalf("同名创建失败: %v", err)
	}
	if first.Slug == second.Slug {
		t.Errorf("slug 冲突未消解: %s", second.Slug)
	}
}

// ==================== Slug 锁定测试 ====================

func TestBusinessService_UpdateSlug_LockedAfterListing(t *testing.T) {
	svc := newBusinessSvc(t)
	ctx := context.Background()

	business, err := svc.Create(ctx, 1, BusinessInput{Name: "Ndola Hardware"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 上架前可改
	updated, err := svc.UpdateSlug(ctx, business.ID, "ndola-tools")
	if err != nil {
		t.Fatalf("UpdateSlug() error = %v", err)
	}
	if updated.Slug != "ndola-tools" {
		t.Errorf("Slug = %s", updated.Slug)
	}

	// 上架后锁定
	ent := &Entitlements{
		TierCode: model.TierBusiness,
		features: map[string]bool{model.FeatureMarketplace: true},
	}
	if _, err := svc.SetMarketplaceListed(ctx, business.ID, true, ent); err != nil {
		t.Fatalf("上架失败: %v", err)
	}
	if _, err := svc.UpdateSlug(ctx, business.ID, "another-slug"); !errors.Is(err, ErrSlugLocked) {
		t.Errorf("上架后改 slug error = %v, want ErrSlugLocked", err)
	}
}

// ==================== 市场目录测试 ====================

func TestBusinessService_SetMarketplaceListed_NeedsFeature(t *testing.T) {
	svc := newBusinessSvc(t)
	ctx := context.Background()

	business, err := svc.Create(ctx, 1, BusinessInput{Name: "Kitwe Bakery"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	free := &Entitlements{TierCode: model.TierFree, features: map[string]bool{}}
	if _, err := svc.SetMarketplaceListed(ctx, business.ID, true, free); !errors.Is(err, ErrMarketplaceOff) {
		t.Errorf("无功能上架 error = %v, want ErrMarketplaceOff", err)
	}

	// 下架不做功能检查
	if _, err := svc.SetMarketplaceListed(ctx, business.ID, false, free); err != nil {
		t.Errorf("下架不应被拦截: %v", err)
	}
}

func TestBusinessService_ListMarketplace(t *testing.T) {
	svc := newBusinessSvc(t)
	ctx := context.Background()

	listed, _ := svc.Create(ctx, 1, BusinessInput{Name: "Listed Shop", Industry: "retail"})
	svc.Repo.UpdateFields(ctx, listed.ID, map[string]interface{}{"marketplace_listed": true})
	// 未上架的不出现在目录里
	svc.Create(ctx, 2, BusinessInput{Name: "Hidden Shop", Industry: "retail"})

	items, total, err := svc.ListMarketplace(ctx, "retail", 1, 20)
	if err != nil {
		t.Fatalf("ListMarketplace() error = %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, len = %d, want 1/1", total, len(items))
	}
	if items[0].Name != "Listed Shop" {
		t.Errorf("目录内容 = %s", items[0].Name)
	}
}
