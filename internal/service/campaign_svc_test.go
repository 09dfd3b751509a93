package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 测试辅助函数 ====================

type campaignEnv struct {
	db  *gorm.DB
	svc *CampaignService
	fb  *mockProvider
}

func newCampaignEnv(t *testing.T) *campaignEnv {
	db := setupServiceTestDB(t)
	cipher := newTestCipher(t)

	fb := &mockProvider{name: model.ProviderFacebook}
	registry := &mockRegistry{providers: map[string]provider.Provider{
		model.ProviderFacebook: fb,
	}}

	postRepo := repository.NewPostRepository(db)
	publisher := NewPublisherService(postRepo, repository.NewIntegrationRepository(db), registry, cipher, nil)
	svc := NewCampaignService(
		repository.NewCampaignRepository(db),
		repository.NewCampaignPostRepository(db),
		postRepo,
		repository.NewBusinessRepository(db),
		repository.NewCampaignUnitOfWork(db),
		publisher,
	)

	business := &model.Business{
		OwnerID:  1,
		Name:     "Mama Chikondi Kitchen",
		Slug:     "mama-chikondi-kitchen",
		Industry: "restaurant",
		IsActive: true,
	}
	if err := db.Create(business).Error; err != nil {
		t.Fatalf("写入商家失败: %v", err)
	}
	seedIntegration(t, db, cipher, business.ID, model.ProviderFacebook, time.Now().Add(24*time.Hour))

	return &campaignEnv{db: db, svc: svc, fb: fb}
}

func seedCampaign(t *testing.T, env *campaignEnv, duration int) *model.Campaign {
	campaign, err := env.svc.Create(context.Background(), 1, CampaignInput{
		Name:            "周年庆",
		Objective:       model.ObjectiveIncreaseSales,
		DurationDays:    duration,
		TargetPlatforms: []string{model.ProviderFacebook},
	}, nil)
	if err != nil {
		t.Fatalf("创建活动失败: %v", err)
	}
	return campaign
}

// activateAt 绕过 Start 的钳制，把活动置为指定开始时间的 active
func activateAt(t *testing.T, env *campaignEnv, id int64, start time.Time) *model.Campaign {
	err := env.db.Model(&model.Campaign{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.CampaignStatusActive,
			"start_date": start,
		}).Error
	if err != nil {
		t.Fatalf("预置活动状态失败: %v", err)
	}
	campaign, err := env.svc.Get(context.Background(), 1, id)
	if err != nil {
		t.Fatalf("查询活动失败: %v", err)
	}
	return campaign
}

// ==================== Create 测试 ====================

func TestCampaignService_Create(t *testing.T) {
	env := newCampaignEnv(t)

	campaign := seedCampaign(t, env, 0)
	if campaign.Status != model.CampaignStatusDraft {
		t.Errorf("Status = %s, want draft", campaign.Status)
	}
	// 未指定时长默认 7 天
	if campaign.DurationDays != 7 {
		t.Errorf("DurationDays = %d, want 7", campaign.DurationDays)
	}
}

func TestCampaignService_Create_InvalidObjective(t *testing.T) {
	env := newCampaignEnv(t)

	_, err := env.svc.Create(context.Background(), 1, CampaignInput{
		Name:      "目标拼错了",
		Objective: "make_money_fast",
	}, nil)
	if !errors.Is(err, model.ErrInvalidObjective) {
		t.Errorf("Create() error = %v, want ErrInvalidObjective", err)
	}
}

func TestCampaignService_Create_Quota(t *testing.T) {
	env := newCampaignEnv(t)

	// free 档没有活动功能
	free := &Entitlements{TierCode: model.TierFree}
	_, err := env.svc.Create(context.Background(), 1, CampaignInput{
		Name:      "免费档的活动",
		Objective: model.ObjectiveGrowFollowers,
	}, free)
	if !errors.Is(err, ErrCampaignQuota) {
		t.Errorf("Create() error = %v, want ErrCampaignQuota", err)
	}

	// growth 档有功能但有上限
	growth := &Entitlements{
		TierCode:     model.TierGrowth,
		features:     map[string]bool{model.FeatureCampaigns: true},
		MaxCampaigns: 1,
	}
	if _, err := env.svc.Create(context.Background(), 1, CampaignInput{
		Name:      "第一个活动",
		Objective: model.ObjectiveGrowFollowers,
	}, growth); err != nil {
		t.Fatalf("额度内创建失败: %v", err)
	}
	_, err = env.svc.Create(context.Background(), 1, CampaignInput{
		Name:      "第二个活动",
		Objective: model.ObjectiveGrowFollowers,
	}, growth)
	if !errors.Is(err, ErrCampaignQuota) {
		t.Errorf("超额创建 error = %v, want ErrCampaignQuota", err)
	}
}

// ==================== GenerateSequence 测试 ====================

func TestCampaignService_GenerateSequence(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 6)

	got, err := env.svc.GenerateSequence(ctx, 1, campaign.ID)
	if err != nil {
		t.Fatalf("GenerateSequence() error = %v", err)
	}
	if len(got.SequenceItems) != 6 {
		t.Fatalf("序列长度 = %d, want 6", len(got.SequenceItems))
	}

	// intro/engagement/reminder/cta 四天一轮
	wantTypes := []string{
		model.SequenceTypeIntro, model.SequenceTypeEngagement,
		model.SequenceTypeReminder, model.SequenceTypeCTA,
		model.SequenceTypeIntro, model.SequenceTypeEngagement,
	}
	for i, item := range got.SequenceItems {
		if item.SequenceDay != i+1 {
			t.Errorf("第 %d 项 SequenceDay = %d", i, item.SequenceDay)
		}
		if item.SequenceType != wantTypes[i] {
			t.Errorf("Day %d 类型 = %s, want %s", i+1, item.SequenceType, wantTypes[i])
		}
		if item.Post == nil {
			t.Fatalf("Day %d 没有关联帖子", i+1)
		}
		if item.Post.Status != model.PostStatusDraft {
			t.Errorf("序列帖初始状态 = %s, want draft", item.Post.Status)
		}
		// 文案来自模板，带商家名
		if !strings.Contains(item.Post.Caption, "Mama Chikondi Kitchen") {
			t.Errorf("Day %d 文案未注入商家名: %s", i+1, item.Post.Caption)
		}
		// 生成时不带排期，由活动派发器决定时机
		if item.Post.ScheduledAt != nil {
			t.Errorf("Day %d 序列帖不应带 ScheduledAt", i+1)
		}
	}
}

func TestCampaignService_GenerateSequence_AlreadyExists(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 3)

	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("首次生成失败: %v", err)
	}
	_, err := env.svc.GenerateSequence(ctx, 1, campaign.ID)
	if !errors.Is(err, ErrSequenceExists) {
		t.Errorf("重复生成 error = %v, want ErrSequenceExists", err)
	}
}

// ==================== 生命周期测试 ====================

func TestCampaignService_Start(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 5)
	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("生成序列失败: %v", err)
	}

	// 过去的开始时间钳到当前
	before := time.Now()
	got, err := env.svc.Start(ctx, 1, campaign.ID, before.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got.Status != model.CampaignStatusActive {
		t.Errorf("Status = %s, want active", got.Status)
	}
	if got.StartDate.Before(before) {
		t.Errorf("过去的开始时间未被钳制: %v", got.StartDate)
	}
	// end = start + duration - 1
	if diff := got.EndDate.Sub(*got.StartDate); diff != 4*24*time.Hour {
		t.Errorf("EndDate 偏移 = %v, want 96h", diff)
	}
}

func TestCampaignService_Start_EmptySequence(t *testing.T) {
	env := newCampaignEnv(t)
	campaign := seedCampaign(t, env, 5)

	_, err := env.svc.Start(context.Background(), 1, campaign.ID, time.Now())
	if !errors.Is(err, model.ErrCampaignEmpty) {
		t.Errorf("Start() error = %v, want ErrCampaignEmpty", err)
	}
}

func TestCampaignService_PauseResume(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 3)

	// 草稿不能暂停
	if _, err := env.svc.Pause(ctx, 1, campaign.ID); !errors.Is(err, model.ErrCampaignNotPausable) {
		t.Errorf("Pause(draft) error = %v, want ErrCampaignNotPausable", err)
	}

	activateAt(t, env, campaign.ID, time.Now())

	paused, err := env.svc.Pause(ctx, 1, campaign.ID)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if paused.Status != model.CampaignStatusPaused {
		t.Errorf("Status = %s, want paused", paused.Status)
	}

	resumed, err := env.svc.Resume(ctx, 1, campaign.ID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resumed.Status != model.CampaignStatusActive {
		t.Errorf("Status = %s, want active", resumed.Status)
	}
}

func TestCampaignService_Update_OnlyDraft(t *testing.T) {
	env := newCampaignEnv(t)
	campaign := seedCampaign(t, env, 3)
	activateAt(t, env, campaign.ID, time.Now())

	_, err := env.svc.Update(context.Background(), 1, campaign.ID, CampaignInput{Name: "改名"})
	if !errors.Is(err, model.ErrCampaignNotDraft) {
		t.Errorf("Update(active) error = %v, want ErrCampaignNotDraft", err)
	}
}

func TestCampaignService_Delete_CleansDrafts(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 3)
	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("生成序列失败: %v", err)
	}

	if err := env.svc.Delete(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var postCount int64
	env.db.Model(&model.Post{}).Where("campaign_id = ?", campaign.ID).Count(&postCount)
	if postCount != 0 {
		t.Errorf("连带草稿帖未删除，剩余 %d 条", postCount)
	}
	var itemCount int64
	env.db.Model(&model.CampaignPost{}).Where("campaign_id = ?", campaign.ID).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("序列连接未删除，剩余 %d 条", itemCount)
	}
}

// ==================== 派发时间测试 ====================

func TestCampaignService_PostingTimeFor(t *testing.T) {
	env := newCampaignEnv(t)

	campaign := &model.Campaign{PostingTimes: model.StringMap{"2": "18:00"}}

	// 活动配置 > 行业默认 > 全局默认
	if got := env.svc.postingTimeFor(campaign, "restaurant", 2); got != "18:00" {
		t.Errorf("活动配置日 = %s, want 18:00", got)
	}
	if got := env.svc.postingTimeFor(campaign, "restaurant", 1); got != "11:00" {
		t.Errorf("行业默认 = %s, want 11:00", got)
	}
	if got := env.svc.postingTimeFor(campaign, "mining", 1); got != "09:00" {
		t.Errorf("全局默认 = %s, want 09:00", got)
	}
}

func TestDueAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	got := dueAt(start, 3, "14:30")
	want := time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dueAt() = %v, want %v", got, want)
	}

	// 非法时间退到默认 09:00
	got = dueAt(start, 1, "half past nine")
	want = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dueAt(非法时间) = %v, want %v", got, want)
	}
}

// ==================== DispatchDue 测试 ====================

func TestCampaignService_DispatchDue(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()

	campaign, err := env.svc.Create(ctx, 1, CampaignInput{
		Name:            "三日闪购",
		Objective:       model.ObjectiveAnnounceDiscount,
		DurationDays:    3,
		TargetPlatforms: []string{model.ProviderFacebook},
		PostingTimes:    map[string]string{"1": "00:00", "2": "00:00", "3": "00:00"},
	}, nil)
	if err != nil {
		t.Fatalf("创建活动失败: %v", err)
	}
	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("生成序列失败: %v", err)
	}

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	campaign = activateAt(t, env, campaign.ID, start)

	// 第 3 天中午：1~3 天全部到期
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	dispatched, err := env.svc.DispatchDue(ctx, campaign, now)
	if err != nil {
		t.Fatalf("DispatchDue() error = %v", err)
	}
	if dispatched != 3 {
		t.Errorf("dispatched = %d, want 3", dispatched)
	}
	if env.fb.PublishCount() != 3 {
		t.Errorf("facebook 投递次数 = %d, want 3", env.fb.PublishCount())
	}

	got, _ := env.svc.Get(ctx, 1, campaign.ID)
	// 活动期未走完，不应 completed
	if got.Status != model.CampaignStatusActive {
		t.Errorf("Status = %s, want active", got.Status)
	}

	// 第 4 天：全部序列日已过且无遗留草稿 -> completed
	campaign, _ = env.svc.Get(ctx, 1, campaign.ID)
	dispatched, err = env.svc.DispatchDue(ctx, campaign, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("第二轮 DispatchDue() error = %v", err)
	}
	if dispatched != 0 {
		t.Errorf("第二轮 dispatched = %d, want 0", dispatched)
	}
	got, _ = env.svc.Get(ctx, 1, campaign.ID)
	if got.Status != model.CampaignStatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
}

func TestCampaignService_DispatchDue_BeforePostingTime(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()

	campaign, err := env.svc.Create(ctx, 1, CampaignInput{
		Name:            "晚间档",
		Objective:       model.ObjectivePromoteStock,
		DurationDays:    1,
		TargetPlatforms: []string{model.ProviderFacebook},
		PostingTimes:    map[string]string{"1": "23:30"},
	}, nil)
	if err != nil {
		t.Fatalf("创建活动失败: %v", err)
	}
	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("生成序列失败: %v", err)
	}

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	campaign = activateAt(t, env, campaign.ID, start)

	// 中午还没到 23:30，留给下一轮
	dispatched, err := env.svc.DispatchDue(ctx, campaign, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DispatchDue() error = %v", err)
	}
	if dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", dispatched)
	}
	if env.fb.PublishCount() != 0 {
		t.Errorf("发帖时间未到仍投递了 %d 次", env.fb.PublishCount())
	}
}

func TestCampaignService_DispatchDue_PausedSkipped(t *testing.T) {
	env := newCampaignEnv(t)
	ctx := context.Background()
	campaign := seedCampaign(t, env, 3)
	if _, err := env.svc.GenerateSequence(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("生成序列失败: %v", err)
	}
	activateAt(t, env, campaign.ID, time.Now().Add(-24*time.Hour))
	if _, err := env.svc.Pause(ctx, 1, campaign.ID); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	campaign, _ = env.svc.Get(ctx, 1, campaign.ID)
	dispatched, err := env.svc.DispatchDue(ctx, campaign, time.Now())
	if err != nil {
		t.Fatalf("DispatchDue() error = %v", err)
	}
	if dispatched != 0 || env.fb.PublishCount() != 0 {
		t.Error("暂停中的活动不应派发")
	}
}
