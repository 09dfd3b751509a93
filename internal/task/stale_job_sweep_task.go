package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/logger"
)

// StaleTimeout publishing 状态的兜底超时
const StaleTimeout = 15 * time.Minute

// StaleJobSweepTask 卡死任务兜底
// worker 崩溃会把帖子永远留在 publishing；每 5 分钟扫一次，
// 超时的强制置为 failed/timeout，让用户可以重试
type StaleJobSweepTask struct {
	PostRepo repository.PostRepository
	Notifier service.Notifier
	Cron     *cron.Cron

	timeout   time.Duration
	batchSize int
}

// NewStaleJobSweepTask 创建兜底任务
func NewStaleJobSweepTask(postRepo repository.PostRepository, notifier service.Notifier) *StaleJobSweepTask {
	if notifier == nil {
		notifier = service.NopNotifier{}
	}
	return &StaleJobSweepTask{
		PostRepo:  postRepo,
		Notifier:  notifier,
		Cron:      cron.New(cron.WithSeconds()),
		timeout:   StaleTimeout,
		batchSize: 200,
	}
}

// Start 启动定时任务
func (t *StaleJobSweepTask) Start() {
	_, err := t.Cron.AddFunc("30 */5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		t.SweepOnce(ctx, time.Now())
	})
	if err != nil {
		logger.L().Fatal("无法启动卡死任务兜底", zap.Error(err))
	}

	t.Cron.Start()
	logger.L().Info("卡死任务兜底已启动 (每5分钟一次)")
}

// Stop 停止定时任务
func (t *StaleJobSweepTask) Stop() {
	t.Cron.Stop()
}

// SweepOnce 执行一轮兜底，返回强制失败的帖子数
func (t *StaleJobSweepTask) SweepOnce(ctx context.Context, now time.Time) int {
	posts, err := t.PostRepo.FindStalePublishing(ctx, now.Add(-t.timeout), t.batchSize)
	if err != nil {
		logger.L().Error("卡死帖子查询失败", zap.Error(err))
		return 0
	}

	swept := 0
	for _, post := range posts {
		post.MarkFailed(model.ErrorKindTimeout, "发布超时，worker 可能已崩溃，请重试")
		if err := t.PostRepo.MarkFailed(ctx, post); err != nil {
			logger.L().Error("强制失败落库出错", zap.Int64("post_id", post.ID), zap.Error(err))
			continue
		}

		t.Notifier.Notify(post.BusinessID, "", realtime.EventPostFailed, map[string]interface{}{
			"post_id":    post.ID,
			"error_kind": model.ErrorKindTimeout,
		})
		logger.L().Warn("帖子发布超时被强制失败",
			zap.Int64("post_id", post.ID),
			zap.Time("stuck_since", post.UpdatedAt))
		swept++
	}

	return swept
}
