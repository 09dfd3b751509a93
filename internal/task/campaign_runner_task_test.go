package task

import (
	"context"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
)

// ==================== 测试辅助函数 ====================

func newRunnerEnv(t *testing.T, db *gorm.DB, publisher *service.PublisherService) *CampaignRunnerTask {
	t.Helper()
	campaignRepo := repository.NewCampaignRepository(db)
	svc := service.NewCampaignService(
		campaignRepo,
		repository.NewCampaignPostRepository(db),
		repository.NewPostRepository(db),
		repository.NewBusinessRepository(db),
		repository.NewCampaignUnitOfWork(db),
		publisher,
	)
	task := NewCampaignRunnerTask(campaignRepo, svc)
	task.SetConcurrency(2, 0)
	return task
}

// seedActiveCampaign 落一个进行中的活动，前 days 天各挂一条草稿序列帖
func seedActiveCampaign(t *testing.T, db *gorm.DB, start time.Time, days int) *model.Campaign {
	t.Helper()
	postingTimes := make(model.StringMap, days)
	for day := 1; day <= days; day++ {
		postingTimes[strconv.Itoa(day)] = "00:00"
	}

	end := start.AddDate(0, 0, days-1)
	campaign := &model.Campaign{
		BusinessID:   1,
		Name:         "雨季促销",
		Objective:    model.ObjectiveIncreaseSales,
		Status:       model.CampaignStatusActive,
		DurationDays: days,
		StartDate:    &start,
		EndDate:      &end,
		PostingTimes: postingTimes,
	}
	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("写入活动失败: %v", err)
	}

	rotation := model.SequenceRotation
	for day := 1; day <= days; day++ {
		post := &model.Post{
			BusinessID:      1,
			Caption:         "序列帖",
			Status:          model.PostStatusDraft,
			CampaignID:      &campaign.ID,
			PlatformTargets: model.StringSlice{model.ProviderFacebook},
		}
		if err := db.Create(post).Error; err != nil {
			t.Fatalf("写入序列帖失败: %v", err)
		}
		item := &model.CampaignPost{
			CampaignID:   campaign.ID,
			PostID:       post.ID,
			SequenceDay:  day,
			SequenceType: rotation[(day-1)%len(rotation)],
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("写入序列项失败: %v", err)
		}
	}
	return campaign
}

// ==================== 活动执行测试 ====================

func TestCampaignRunnerTask_RunOnce(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	publisher, _ := newTaskPublisher(t, db, fb)

	business := &model.Business{Name: "Mama Chikondi Kitchen", Slug: "mama-chikondi", Industry: "restaurant", OwnerID: 1, TierCode: model.TierGrowth, IsActive: true}
	if err := db.Create(business).Error; err != nil {
		t.Fatalf("写入商家失败: %v", err)
	}

	// 开始于 25 小时前：第 1、2 天的序列帖都已到期
	start := time.Now().Add(-25 * time.Hour)
	seedActiveCampaign(t, db, start, 7)

	task := newRunnerEnv(t, db, publisher)
	dispatched := task.RunOnce(context.Background(), time.Now())
	if dispatched != 2 {
		t.Fatalf("dispatched = %d, want 2", dispatched)
	}
	if fb.PublishCount() != 2 {
		t.Errorf("外呼次数 = %d, want 2", fb.PublishCount())
	}

	// 派发过的序列帖进入 published，后面几天的保持草稿
	var published, draft int64
	db.Model(&model.Post{}).Where("status = ?", model.PostStatusPublished).Count(&published)
	db.Model(&model.Post{}).Where("status = ?", model.PostStatusDraft).Count(&draft)
	if published != 2 || draft != 5 {
		t.Errorf("published = %d, draft = %d, want 2/5", published, draft)
	}

	// 重复执行幂等：已派发的不再外呼
	if again := task.RunOnce(context.Background(), time.Now()); again != 0 {
		t.Errorf("重复执行 dispatched = %d, want 0", again)
	}
	if fb.PublishCount() != 2 {
		t.Errorf("重复执行后外呼次数 = %d, want 2", fb.PublishCount())
	}
}

func TestCampaignRunnerTask_RunOnce_NoActiveCampaigns(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	publisher, _ := newTaskPublisher(t, db, fb)

	task := newRunnerEnv(t, db, publisher)
	if dispatched := task.RunOnce(context.Background(), time.Now()); dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", dispatched)
	}
}
