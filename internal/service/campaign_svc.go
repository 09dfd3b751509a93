package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/pkg/logger"
)

// ==================== 输入结构 ====================

// CampaignInput 创建/编辑活动的输入
type CampaignInput struct {
	Name            string
	Objective       string
	DurationDays    int
	TargetPlatforms []string
	TemplateID      string
	AutoGenerate    bool
	PostingTimes    map[string]string
}

var (
	ErrCampaignQuota     = errors.New("活动配额已用完，请升级订阅")
	ErrSequenceExists    = errors.New("活动序列已生成，如需重建请先删除现有序列")
	ErrSequenceNotReady  = errors.New("请先生成活动序列")
)

// defaultPostingTime 未配置时的发帖时间
const defaultPostingTime = "09:00"

// industryPostingTimes 行业默认发帖时间（赞比亚本地习惯）
var industryPostingTimes = map[string]string{
	"restaurant": "11:00",
	"salon":      "08:00",
	"retail":     "10:00",
	"services":   "09:00",
}

// captionTemplates 按营销目标 x 序列类型的文案模板
// %s 为商家名
var captionTemplates = map[string]map[string]string{
	model.ObjectiveIncreaseSales: {
		model.SequenceTypeIntro:      "Big things are happening at %s! Stay tuned this week 🎉",
		model.SequenceTypeEngagement: "What's your favourite thing about %s? Tell us below 👇",
		model.SequenceTypeReminder:   "Don't forget — %s has something special for you this week!",
		model.SequenceTypeCTA:        "Visit %s today or send us a message to place your order 🛍️",
	},
	model.ObjectivePromoteStock: {
		model.SequenceTypeIntro:      "Fresh stock has landed at %s! Come take a look 📦",
		model.SequenceTypeEngagement: "Which of our new arrivals would you pick? Let us know!",
		model.SequenceTypeReminder:   "New stock at %s is moving fast — don't miss out!",
		model.SequenceTypeCTA:        "DM %s now to reserve yours before it's gone 🏃",
	},
	model.ObjectiveAnnounceDiscount: {
		model.SequenceTypeIntro:      "A special offer is coming from %s this week 👀",
		model.SequenceTypeEngagement: "Guess the discount! Drop your answer in the comments 💬",
		model.SequenceTypeReminder:   "Our offer at %s ends soon — have you claimed yours?",
		model.SequenceTypeCTA:        "Last chance! Visit %s today and save 💰",
	},
	model.ObjectiveBringBackCustomer: {
		model.SequenceTypeIntro:      "We've missed you at %s! Here's what's new ✨",
		model.SequenceTypeEngagement: "How long since your last visit to %s? Time to fix that!",
		model.SequenceTypeReminder:   "Your favourites are still waiting for you at %s ❤️",
		model.SequenceTypeCTA:        "Come back to %s this week and let us treat you right!",
	},
	model.ObjectiveGrowFollowers: {
		model.SequenceTypeIntro:      "New here? Welcome to %s — here's what we do 👋",
		model.SequenceTypeEngagement: "Tag a friend who needs to know about %s!",
		model.SequenceTypeReminder:   "Follow %s so you never miss an update 🔔",
		model.SequenceTypeCTA:        "Hit follow and share %s with your people — it helps a lot 🙏",
	},
}

// ==================== 服务 ====================

// CampaignService 营销活动服务（序列生成 + 生命周期 + 按日派发）
type CampaignService struct {
	CampaignRepo repository.CampaignRepository
	ItemRepo     repository.CampaignPostRepository
	PostRepo     repository.PostRepository
	BusinessRepo repository.BusinessRepository
	Uow          *repository.CampaignUnitOfWork
	Publisher    *PublisherService
}

// NewCampaignService 工厂方法
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	itemRepo repository.CampaignPostRepository,
	postRepo repository.PostRepository,
	businessRepo repository.BusinessRepository,
	uow *repository.CampaignUnitOfWork,
	publisher *PublisherService,
) *CampaignService {
	return &CampaignService{
		CampaignRepo: campaignRepo,
		ItemRepo:     itemRepo,
		PostRepo:     postRepo,
		BusinessRepo: businessRepo,
		Uow:          uow,
		Publisher:    publisher,
	}
}

// Create 创建活动
func (s *CampaignService) Create(ctx context.Context, businessID int64, input CampaignInput, ent *Entitlements) (*model.Campaign, error) {
	if !model.IsValidObjective(input.Objective) {
		return nil, model.ErrInvalidObjective
	}
	for _, target := range input.TargetPlatforms {
		if !model.IsValidProvider(target) {
			return nil, fmt.Errorf("不支持的平台: %s", target)
		}
	}

	if ent != nil {
		used, err := s.CampaignRepo.CountByBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if ok, _ := ent.CheckCampaignQuota(used); !ok {
			return nil, ErrCampaignQuota
		}
	}

	duration := input.DurationDays
	if duration <= 0 {
		duration = 7
	}

	campaign := &model.Campaign{
		BusinessID:      businessID,
		Name:            input.Name,
		Objective:       input.Objective,
		Status:          model.CampaignStatusDraft,
		DurationDays:    duration,
		TargetPlatforms: model.StringSlice(input.TargetPlatforms),
		TemplateID:      input.TemplateID,
		AutoGenerate:    input.AutoGenerate,
		PostingTimes:    model.StringMap(input.PostingTimes),
	}
	if err := s.CampaignRepo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Update 编辑活动（仅草稿）
func (s *CampaignService) Update(ctx context.Context, businessID, id int64, input CampaignInput) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := campaign.CanEdit(); err != nil {
		return nil, err
	}
	if input.Objective != "" && !model.IsValidObjective(input.Objective) {
		return nil, model.ErrInvalidObjective
	}

	fields := map[string]interface{}{
		"name": input.Name,
	}
	if input.Objective != "" {
		fields["objective"] = input.Objective
	}
	if input.DurationDays > 0 {
		fields["duration_days"] = input.DurationDays
	}
	if input.TargetPlatforms != nil {
		targets := model.StringSlice(input.TargetPlatforms)
		fields["target_platforms"] = &targets
	}
	if input.PostingTimes != nil {
		times := model.StringMap(input.PostingTimes)
		fields["posting_times"] = &times
	}

	if err := s.CampaignRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.CampaignRepo.GetForBusiness(ctx, businessID, id)
}

// Delete 删除活动（仅草稿），连带删除序列连接和未发布的草稿帖
func (s *CampaignService) Delete(ctx context.Context, businessID, id int64) error {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	if err := campaign.CanEdit(); err != nil {
		return err
	}

	return s.Uow.Transaction(ctx, func(uow *repository.CampaignUnitOfWork) error {
		items, err := uow.Items.GetByCampaignID(ctx, campaign.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.Post != nil && item.Post.Status == model.PostStatusDraft {
				if err := uow.Posts.Delete(ctx, item.PostID); err != nil {
					return err
				}
			}
		}
		if err := uow.Items.DeleteByCampaignID(ctx, campaign.ID); err != nil {
			return err
		}
		return uow.Campaigns.Delete(ctx, campaign.ID)
	})
}

// GenerateSequence 生成活动序列
// 每天一条草稿帖，类型按 intro/engagement/reminder/cta 轮换，
// 文案来自目标模板，生成时不带 ScheduledAt
func (s *CampaignService) GenerateSequence(ctx context.Context, businessID, id int64) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := campaign.CanEdit(); err != nil {
		return nil, err
	}

	existing, err := s.ItemRepo.CountByCampaignID(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrSequenceExists
	}

	business, err := s.BusinessRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	err = s.Uow.Transaction(ctx, func(uow *repository.CampaignUnitOfWork) error {
		for day := 1; day <= campaign.DurationDays; day++ {
			seqType := model.SequenceTypeForDay(day)
			post := &model.Post{
				BusinessID:      businessID,
				CampaignID:      &campaign.ID,
				Title:           fmt.Sprintf("%s · Day %d", campaign.Name, day),
				Caption:         renderCaption(campaign.Objective, seqType, business.Name),
				Status:          model.PostStatusDraft,
				PostType:        model.PostTypeStandard,
				PlatformTargets: append(model.StringSlice{}, campaign.TargetPlatforms...),
			}
			if err := uow.Posts.Create(ctx, post); err != nil {
				return err
			}
			if err := uow.Items.CreateBatch(ctx, []model.CampaignPost{{
				CampaignID:   campaign.ID,
				PostID:       post.ID,
				SequenceDay:  day,
				SequenceType: seqType,
			}}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.CampaignRepo.GetForBusiness(ctx, businessID, id)
}

// renderCaption 渲染目标模板，缺失时退到通用文案
func renderCaption(objective, seqType, businessName string) string {
	if byType, ok := captionTemplates[objective]; ok {
		if tpl, ok := byType[seqType]; ok {
			return fmt.Sprintf(tpl, businessName)
		}
	}
	return fmt.Sprintf("Something great is happening at %s — stay tuned!", businessName)
}

// Start 启动活动
// 至少要有一个序列帖；过去的开始时间钳到当前；end = start + duration - 1
func (s *CampaignService) Start(ctx context.Context, businessID, id int64, startDate time.Time) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := campaign.CanStart(); err != nil {
		return nil, err
	}

	count, err := s.ItemRepo.CountByCampaignID(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, model.ErrCampaignEmpty
	}

	now := time.Now()
	if startDate.Before(now) {
		startDate = now
	}
	endDate := startDate.AddDate(0, 0, campaign.DurationDays-1)

	if err := s.CampaignRepo.UpdateFields(ctx, campaign.ID, map[string]interface{}{
		"status":     model.CampaignStatusActive,
		"start_date": startDate,
		"end_date":   endDate,
	}); err != nil {
		return nil, err
	}

	campaign.Status = model.CampaignStatusActive
	campaign.StartDate = &startDate
	campaign.EndDate = &endDate
	return campaign, nil
}

// Pause 暂停：只拦住后续派发，已在发布中的帖子照常完成
func (s *CampaignService) Pause(ctx context.Context, businessID, id int64) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := campaign.CanPause(); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.UpdateStatus(ctx, campaign.ID, model.CampaignStatusPaused); err != nil {
		return nil, err
	}
	campaign.Status = model.CampaignStatusPaused
	return campaign, nil
}

// Resume 恢复
func (s *CampaignService) Resume(ctx context.Context, businessID, id int64) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := campaign.CanResume(); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.UpdateStatus(ctx, campaign.ID, model.CampaignStatusActive); err != nil {
		return nil, err
	}
	campaign.Status = model.CampaignStatusActive
	return campaign, nil
}

// Get 查询单条
func (s *CampaignService) Get(ctx context.Context, businessID, id int64) (*model.Campaign, error) {
	return s.CampaignRepo.GetForBusiness(ctx, businessID, id)
}

// List 分页列表
func (s *CampaignService) List(ctx context.Context, filter repository.CampaignFilter) ([]model.Campaign, int64, error) {
	return s.CampaignRepo.List(ctx, filter)
}

// ==================== 按日派发 ====================

// postingTimeFor 某序列日的发帖时间 (HH:MM)
// 优先级：活动配置 > 行业默认 > 全局默认
func (s *CampaignService) postingTimeFor(campaign *model.Campaign, industry string, day int) string {
	if campaign.PostingTimes != nil {
		if t, ok := campaign.PostingTimes[fmt.Sprintf("%d", day)]; ok && t != "" {
			return t
		}
	}
	if t, ok := industryPostingTimes[industry]; ok {
		return t
	}
	return defaultPostingTime
}

// dueAt 序列日的应发时刻
func dueAt(start time.Time, day int, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t, _ = time.Parse("15:04", defaultPostingTime)
	}
	date := start.AddDate(0, 0, day-1)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, start.Location())
}

// DispatchDue 派发一个活动当前到期的序列帖
// 运行条件：活动 active 且已开始；paused 的活动调用方直接跳过。
// 全部序列日走完且没有遗留草稿时标记 completed。返回成功派发的帖子数。
func (s *CampaignService) DispatchDue(ctx context.Context, campaign *model.Campaign, now time.Time) (int, error) {
	if campaign.Status != model.CampaignStatusActive || campaign.StartDate == nil {
		return 0, nil
	}

	start := *campaign.StartDate
	elapsed := repository.ElapsedDays(start, now)
	if elapsed == 0 {
		return 0, nil
	}

	business, err := s.BusinessRepo.GetByID(ctx, campaign.BusinessID)
	if err != nil {
		return 0, err
	}

	maxDay := elapsed
	if maxDay > campaign.DurationDays {
		maxDay = campaign.DurationDays
	}

	dispatched := 0
	pendingDrafts := 0
	for day := 1; day <= maxDay; day++ {
		items, err := s.ItemRepo.GetByDay(ctx, campaign.ID, day)
		if err != nil {
			return dispatched, err
		}
		for _, item := range items {
			if item.Post == nil || item.Post.Status != model.PostStatusDraft {
				continue
			}
			// 发帖时间未到的留给下一轮
			if now.Before(dueAt(start, day, s.postingTimeFor(campaign, business.Industry, day))) {
				pendingDrafts++
				continue
			}

			claimed, err := s.PostRepo.ClaimForPublishing(ctx, item.PostID,
				[]string{model.PostStatusDraft})
			if err != nil {
				return dispatched, err
			}
			if !claimed {
				continue
			}

			post, err := s.PostRepo.GetByID(ctx, item.PostID)
			if err != nil {
				return dispatched, err
			}
			if err := s.Publisher.Execute(ctx, post); err != nil {
				logger.L().Error("活动帖子发布失败",
					zap.Int64("campaign_id", campaign.ID),
					zap.Int64("post_id", item.PostID),
					zap.Error(err))
				continue
			}
			dispatched++
		}
	}

	// 所有序列日都已过去且没有待发草稿 -> completed
	if elapsed > campaign.DurationDays && pendingDrafts == 0 {
		if err := s.CampaignRepo.UpdateStatus(ctx, campaign.ID, model.CampaignStatusCompleted); err != nil {
			return dispatched, err
		}
	}

	return dispatched, nil
}
