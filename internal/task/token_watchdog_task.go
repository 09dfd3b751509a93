package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/logger"
)

// TokenWatchdogTask 令牌保活任务
// 每 40 分钟巡检一次：带刷新令牌的平台 (whatsapp/tiktok) 自动续期，
// facebook/instagram 长效令牌过期只能通知用户重新连接
type TokenWatchdogTask struct {
	IntegrationRepo repository.IntegrationRepository
	IntegrationSvc  *service.IntegrationService
	Notifier        service.Notifier
	Cron            *cron.Cron

	// 提前多久开始续期
	refreshAhead     time.Duration
	concurrencyLimit int
	sleepTime        time.Duration
	batchSize        int
}

// NewTokenWatchdogTask 创建令牌保活任务
func NewTokenWatchdogTask(
	integrationRepo repository.IntegrationRepository,
	integrationSvc *service.IntegrationService,
	notifier service.Notifier,
) *TokenWatchdogTask {
	if notifier == nil {
		notifier = service.NopNotifier{}
	}
	return &TokenWatchdogTask{
		IntegrationRepo:  integrationRepo,
		IntegrationSvc:   integrationSvc,
		Notifier:         notifier,
		Cron:             cron.New(cron.WithSeconds()),
		refreshAhead:     2 * time.Hour,
		concurrencyLimit: 20,
		sleepTime:        50 * time.Millisecond,
		batchSize:        500,
	}
}

// Start 启动定时任务
func (t *TokenWatchdogTask) Start() {
	// 服务启动先跑一轮，避免停机期间积压的过期令牌等 40 分钟
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		logger.L().Info("服务启动，执行首次令牌巡检")
		t.PatrolOnce(ctx, time.Now())
	}()

	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.PatrolOnce(ctx, time.Now())
	})
	if err != nil {
		logger.L().Fatal("无法启动令牌保活任务", zap.Error(err))
	}

	t.Cron.Start()
	logger.L().Info("令牌保活任务已启动 (每40分钟一次)")
}

// Stop 停止定时任务
func (t *TokenWatchdogTask) Stop() {
	t.Cron.Stop()
}

// PatrolOnce 执行一轮巡检，返回成功续期的数量
func (t *TokenWatchdogTask) PatrolOnce(ctx context.Context, now time.Time) int {
	// 可续期的：即将过期且带刷新令牌
	expiring, err := t.IntegrationRepo.FindExpiring(ctx, now.Add(t.refreshAhead), t.batchSize)
	if err != nil {
		logger.L().Error("过期令牌查询失败", zap.Error(err))
		return 0
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	refreshed := 0

	for _, integration := range expiring {
		select {
		case <-ctx.Done():
			logger.L().Warn("令牌巡检超时停止")
			wg.Wait()
			return refreshed
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(i *model.Integration) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.IntegrationSvc.Refresh(ctx, i); err != nil {
				logger.L().Warn("令牌续期失败",
					zap.Int64("integration_id", i.ID),
					zap.String("provider", i.Provider),
					zap.Error(err))
				return
			}

			mu.Lock()
			refreshed++
			mu.Unlock()
		}(integration)
	}

	wg.Wait()

	// 不可续期且已过期的：推送重连提醒
	t.notifyExpired(ctx, now)

	if refreshed > 0 {
		logger.L().Info("本轮令牌巡检完成", zap.Int("refreshed", refreshed))
	}
	return refreshed
}

// notifyExpired 给持有已过期长效令牌的商家推送重连提醒
// facebook/instagram 没有刷新令牌可用，只能用户重新授权
func (t *TokenWatchdogTask) notifyExpired(ctx context.Context, now time.Time) {
	expired, err := t.IntegrationRepo.FindExpiredWithoutRefresh(ctx, now, t.batchSize)
	if err != nil {
		logger.L().Error("不可续期集成查询失败", zap.Error(err))
		return
	}

	for _, integration := range expired {
		t.Notifier.Notify(integration.BusinessID, "", realtime.EventTokenExpired, map[string]interface{}{
			"provider":     integration.Provider,
			"display_name": integration.DisplayName,
		})
		logger.L().Warn("集成令牌已过期，需要重新连接",
			zap.Int64("business_id", integration.BusinessID),
			zap.String("provider", integration.Provider))
	}
}
