package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/pkg/logger"
)

// ==================== 发布队列 ====================

// PublishQueue 发布执行队列
// 请求线程只负责认领帖子并入队，真正的平台外呼在后台 worker
// 里完成，接口立即返回 publishing 状态
type PublishQueue struct {
	publisher *PublisherService

	jobs        chan *model.Post
	timeout     time.Duration
	workerCount int

	workers  sync.WaitGroup
	inflight sync.WaitGroup
	stopOnce sync.Once
}

// NewPublishQueue 创建发布队列，workers/buffer 非正数时取默认值
func NewPublishQueue(publisher *PublisherService, workers, buffer int) *PublishQueue {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &PublishQueue{
		publisher:   publisher,
		jobs:        make(chan *model.Post, buffer),
		timeout:     2 * time.Minute,
		workerCount: workers,
	}
}

// Start 启动 worker
func (q *PublishQueue) Start() {
	for i := 0; i < q.workerCount; i++ {
		q.workers.Add(1)
		go q.run()
	}
}

func (q *PublishQueue) run() {
	defer q.workers.Done()
	for post := range q.jobs {
		// 不继承请求上下文：请求早已返回，发布要自己活完
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.publisher.Execute(ctx, post); err != nil {
			logger.L().Error("后台发布执行失败",
				zap.Int64("post_id", post.ID),
				zap.Error(err))
		}
		cancel()
		q.inflight.Done()
	}
}

// Enqueue 投递一条已认领为 publishing 的帖子
func (q *PublishQueue) Enqueue(post *model.Post) {
	q.inflight.Add(1)
	q.jobs <- post
}

// Flush 等待在途任务全部落库
func (q *PublishQueue) Flush() {
	q.inflight.Wait()
}

// Stop 排空队列并停掉 worker，优雅退出时调用
func (q *PublishQueue) Stop() {
	q.stopOnce.Do(func() {
		q.inflight.Wait()
		close(q.jobs)
		q.workers.Wait()
	})
}
