package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/logger"
)

// CampaignRunnerTask 活动序列执行任务
// 每分钟扫描进行中的活动，派发到期的序列帖
// paused 的活动在查询层就被过滤掉
type CampaignRunnerTask struct {
	CampaignRepo repository.CampaignRepository
	CampaignSvc  *service.CampaignService
	Cron         *cron.Cron

	concurrencyLimit int
	sleepTime        time.Duration
	batchSize        int
}

// NewCampaignRunnerTask 创建活动执行任务
func NewCampaignRunnerTask(campaignRepo repository.CampaignRepository, campaignSvc *service.CampaignService) *CampaignRunnerTask {
	return &CampaignRunnerTask{
		CampaignRepo:     campaignRepo,
		CampaignSvc:      campaignSvc,
		Cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 5,
		sleepTime:        100 * time.Millisecond,
		batchSize:        100,
	}
}

// SetConcurrency 调整并发参数
func (t *CampaignRunnerTask) SetConcurrency(limit int, sleep time.Duration) {
	t.concurrencyLimit = limit
	t.sleepTime = sleep
}

// Start 启动定时任务
func (t *CampaignRunnerTask) Start() {
	_, err := t.Cron.AddFunc("15 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.RunOnce(ctx, time.Now())
	})
	if err != nil {
		logger.L().Fatal("无法启动活动执行任务", zap.Error(err))
	}

	t.Cron.Start()
	logger.L().Info("活动序列执行任务已启动 (每分钟一次)")
}

// Stop 停止定时任务
func (t *CampaignRunnerTask) Stop() {
	t.Cron.Stop()
}

// RunOnce 执行一轮活动派发，返回派发的帖子总数
func (t *CampaignRunnerTask) RunOnce(ctx context.Context, now time.Time) int {
	campaigns, err := t.CampaignRepo.FindActive(ctx, t.batchSize)
	if err != nil {
		logger.L().Error("进行中活动查询失败", zap.Error(err))
		return 0
	}
	if len(campaigns) == 0 {
		return 0
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for _, campaign := range campaigns {
		select {
		case <-ctx.Done():
			logger.L().Warn("活动派发超时停止")
			wg.Wait()
			return total
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(c *model.Campaign) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := t.CampaignSvc.DispatchDue(ctx, c, now)
			if err != nil {
				logger.L().Error("活动派发失败",
					zap.Int64("campaign_id", c.ID),
					zap.Error(err))
				return
			}
			if n > 0 {
				mu.Lock()
				total += n
				mu.Unlock()
			}
		}(campaign)
	}

	wg.Wait()
	if total > 0 {
		logger.L().Info("本轮活动派发完成", zap.Int("dispatched", total))
	}
	return total
}
