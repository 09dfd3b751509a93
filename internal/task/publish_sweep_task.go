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

// PublishSweepTask 排期扫描任务
// 每分钟把到期的 scheduled 帖子送进发布流水线，
// 同时补扫瞬时失败的帖子做有限次自动重试
type PublishSweepTask struct {
	PostRepo     repository.PostRepository
	BusinessRepo repository.BusinessRepository
	Publisher    *service.PublisherService
	Entitlement  *service.EntitlementService
	Cron         *cron.Cron

	// 控制并发发布数量，防止打爆平台限流
	concurrencyLimit int
	sleepTime        time.Duration
	batchSize        int
	retryBackoff     time.Duration
}

// NewPublishSweepTask 创建排期扫描任务
func NewPublishSweepTask(
	postRepo repository.PostRepository,
	businessRepo repository.BusinessRepository,
	publisher *service.PublisherService,
	entitlement *service.EntitlementService,
) *PublishSweepTask {
	return &PublishSweepTask{
		PostRepo:         postRepo,
		BusinessRepo:     businessRepo,
		Publisher:        publisher,
		Entitlement:      entitlement,
		Cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 10,
		sleepTime:        100 * time.Millisecond,
		batchSize:        200,
		retryBackoff:     5 * time.Minute,
	}
}

// SetConcurrency 调整并发参数
func (t *PublishSweepTask) SetConcurrency(limit int, sleep time.Duration) {
	t.concurrencyLimit = limit
	t.sleepTime = sleep
}

// SetRetryBackoff 调整自动重试的基础退避间隔
func (t *PublishSweepTask) SetRetryBackoff(backoff time.Duration) {
	t.retryBackoff = backoff
}

// Start 启动定时任务
func (t *PublishSweepTask) Start() {
	_, err := t.Cron.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.SweepOnce(ctx, time.Now())
	})
	if err != nil {
		logger.L().Fatal("无法启动排期扫描任务", zap.Error(err))
	}

	t.Cron.Start()
	logger.L().Info("排期扫描任务已启动 (每分钟一次)")
}

// Stop 停止定时任务
func (t *PublishSweepTask) Stop() {
	t.Cron.Stop()
}

// autoPostingAllowed 商家是否具备自动发布权益
// 同一轮扫描内按商家缓存；商家查不到时不派发，等人工排查
func (t *PublishSweepTask) autoPostingAllowed(ctx context.Context, cache map[int64]bool, businessID int64) bool {
	if allowed, ok := cache[businessID]; ok {
		return allowed
	}

	allowed := false
	business, err := t.BusinessRepo.GetByID(ctx, businessID)
	if err != nil {
		logger.L().Warn("商家查询失败，跳过派发",
			zap.Int64("business_id", businessID), zap.Error(err))
	} else if ent, err := t.Entitlement.Resolve(ctx, business); err != nil {
		logger.L().Warn("权益解析失败，跳过派发",
			zap.Int64("business_id", businessID), zap.Error(err))
	} else {
		allowed = ent.HasFeature(model.FeatureAutoPosting)
	}

	cache[businessID] = allowed
	return allowed
}

// SweepOnce 执行一轮扫描（手动触发和测试共用）
// 返回本轮实际派发的帖子数
func (t *PublishSweepTask) SweepOnce(ctx context.Context, now time.Time) int {
	entCache := make(map[int64]bool)

	dispatched := t.sweepScheduled(ctx, now, entCache)
	dispatched += t.sweepRetries(ctx, now, entCache)
	return dispatched
}

// sweepScheduled 派发到期的排期帖子
func (t *PublishSweepTask) sweepScheduled(ctx context.Context, now time.Time, entCache map[int64]bool) int {
	posts, err := t.PostRepo.FindDueScheduled(ctx, now, t.batchSize)
	if err != nil {
		logger.L().Error("到期帖子查询失败", zap.Error(err))
		return 0
	}
	if len(posts) == 0 {
		return 0
	}

	logger.L().Info("开始派发到期帖子",
		zap.Int("count", len(posts)),
		zap.Int("concurrency", t.concurrencyLimit))

	// 信号量限流 + WaitGroup 等待收尾
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	dispatched := 0

	for _, post := range posts {
		select {
		case <-ctx.Done():
			logger.L().Warn("排期扫描超时停止")
			wg.Wait()
			return dispatched
		default:
		}

		// 订阅不含自动发布的商家帖子留在 scheduled，升级后下一轮接着发
		if !t.autoPostingAllowed(ctx, entCache, post.BusinessID) {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(p *model.Post) {
			defer wg.Done()
			defer func() { <-sem }()

			// 条件更新认领：扫描重叠时第二轮在这里落空
			claimed, err := t.PostRepo.ClaimForPublishing(ctx, p.ID,
				[]string{model.PostStatusScheduled})
			if err != nil {
				logger.L().Error("帖子认领失败", zap.Int64("post_id", p.ID), zap.Error(err))
				return
			}
			if !claimed {
				return
			}

			p.Status = model.PostStatusPublishing
			if err := t.Publisher.Execute(ctx, p); err != nil {
				logger.L().Error("帖子发布执行失败", zap.Int64("post_id", p.ID), zap.Error(err))
				return
			}

			mu.Lock()
			dispatched++
			mu.Unlock()
		}(post)
	}

	wg.Wait()
	logger.L().Info("本轮排期派发完成", zap.Int("dispatched", dispatched))
	return dispatched
}

// sweepRetries 自动重试瞬时失败的帖子
// 只补扫 transient 分类，退避随 retry_count 指数拉长，
// 超过 MaxAutoRetries 后不再碰，留给人工重试
func (t *PublishSweepTask) sweepRetries(ctx context.Context, now time.Time, entCache map[int64]bool) int {
	posts, err := t.PostRepo.FindRetryableFailed(ctx, now.Add(-t.retryBackoff), service.MaxAutoRetries, t.batchSize)
	if err != nil {
		logger.L().Error("可重试帖子查询失败", zap.Error(err))
		return 0
	}

	dispatched := 0
	for _, post := range posts {
		select {
		case <-ctx.Done():
			return dispatched
		default:
		}

		// 指数退避：第 n 次重试前至少等 backoff * 2^n
		if now.Sub(post.UpdatedAt) < t.retryBackoff<<post.RetryCount {
			continue
		}
		if !t.autoPostingAllowed(ctx, entCache, post.BusinessID) {
			continue
		}

		claimed, err := t.PostRepo.ClaimForPublishing(ctx, post.ID,
			[]string{model.PostStatusFailed})
		if err != nil {
			logger.L().Error("帖子认领失败", zap.Int64("post_id", post.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		if err := t.PostRepo.IncrementRetry(ctx, post.ID); err != nil {
			logger.L().Error("重试计数更新失败", zap.Int64("post_id", post.ID), zap.Error(err))
		}

		post.Status = model.PostStatusPublishing
		if err := t.Publisher.Execute(ctx, post); err != nil {
			logger.L().Error("帖子发布执行失败", zap.Int64("post_id", post.ID), zap.Error(err))
			continue
		}

		logger.L().Info("瞬时失败帖子已自动重试",
			zap.Int64("post_id", post.ID),
			zap.Int("retry_count", post.RetryCount+1))
		dispatched++
	}
	return dispatched
}
