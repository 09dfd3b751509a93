package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/pkg/crypto"
	"bizboost_v1_202608/pkg/logger"
)

// ==================== 依赖接口 ====================

// ProviderRegistry 适配器注册表（测试时注入桩实现）
type ProviderRegistry interface {
	Get(name string) (provider.Provider, error)
}

// Notifier 实时推送（测试时注入空实现）
type Notifier interface {
	Notify(businessID int64, excludeID string, eventType string, data interface{})
}

// NopNotifier 空推送实现
type NopNotifier struct{}

func (NopNotifier) Notify(businessID int64, excludeID string, eventType string, data interface{}) {}

// ==================== 发布指标 ====================

var publishAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bizboost_publish_attempts_total",
		Help: "帖子发布尝试总数",
	},
	[]string{"provider", "outcome"},
)

// ==================== 发布器 ====================

// MaxAutoRetries 瞬时失败自动重试上限，超出后等待人工介入
const MaxAutoRetries = 3

// PublisherService 发布执行器
// 约定：调用方必须先通过仓储的条件更新把帖子认领为 publishing，
// 本服务只负责逐平台投递和终态落库
type PublisherService struct {
	PostRepo        repository.PostRepository
	IntegrationRepo repository.IntegrationRepository
	Registry        ProviderRegistry
	Cipher          *crypto.TokenCipher
	Notifier        Notifier
}

// NewPublisherService 工厂方法
func NewPublisherService(
	postRepo repository.PostRepository,
	integrationRepo repository.IntegrationRepository,
	registry ProviderRegistry,
	cipher *crypto.TokenCipher,
	notifier Notifier,
) *PublisherService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PublisherService{
		PostRepo:        postRepo,
		IntegrationRepo: integrationRepo,
		Registry:        registry,
		Cipher:          cipher,
		Notifier:        notifier,
	}
}

// providerFailure 单平台失败记录
type providerFailure struct {
	provider string
	kind     string
	message  string
}

// Execute 执行一次发布（帖子已处于 publishing 状态）
// 逐平台投递：已有远端 ID 的平台跳过（幂等重试），令牌过期的平台
// 零外呼直接判失败，其余平台实际调用，远端 ID 拿到即落库
func (s *PublisherService) Execute(ctx context.Context, post *model.Post) error {
	if post.ExternalIDs == nil {
		post.ExternalIDs = make(model.StringMap)
	}

	var failures []providerFailure
	now := time.Now()

	mediaURLs := make([]string, 0, len(post.Media))
	for _, m := range post.Media {
		mediaURLs = append(mediaURLs, m.StoragePath)
	}

	for _, target := range post.PlatformTargets {
		// 上次已成功的平台不再重复投递
		if _, done := post.ExternalIDs[target]; done {
			continue
		}

		externalID, err := s.publishToProvider(ctx, post, target, mediaURLs, now)
		if err != nil {
			publishAttemptsTotal.WithLabelValues(target, "failure").Inc()
			failures = append(failures, providerFailure{
				provider: target,
				kind:     provider.KindOf(err),
				message:  err.Error(),
			})
			logger.L().Warn("平台投递失败",
				zap.Int64("post_id", post.ID),
				zap.String("provider", target),
				zap.Error(err))
			continue
		}

		publishAttemptsTotal.WithLabelValues(target, "success").Inc()

		// 成功即落库，防止进程崩溃丢失已发布记录
		post.ExternalIDs[target] = externalID
		if err := s.PostRepo.UpdateFields(ctx, post.ID, map[string]interface{}{
			"external_ids": &post.ExternalIDs,
		}); err != nil {
			logger.L().Error("远端ID落库失败",
				zap.Int64("post_id", post.ID),
				zap.String("provider", target),
				zap.Error(err))
		}
	}

	// 聚合终态
	if len(failures) == 0 {
		post.MarkPublished(nil)
		if err := s.PostRepo.MarkPublished(ctx, post); err != nil {
			return err
		}
		s.Notifier.Notify(post.BusinessID, "", realtime.EventPostPublished, map[string]interface{}{
			"post_id":      post.ID,
			"external_ids": post.ExternalIDs,
		})
		return nil
	}

	post.MarkFailed(worstKind(failures), summarize(failures))
	if err := s.PostRepo.MarkFailed(ctx, post); err != nil {
		return err
	}
	s.Notifier.Notify(post.BusinessID, "", realtime.EventPostFailed, map[string]interface{}{
		"post_id":    post.ID,
		"error_kind": post.ErrorKind,
		"message":    post.ErrorMessage,
	})
	return nil
}

// publishToProvider 单平台投递
func (s *PublisherService) publishToProvider(ctx context.Context, post *model.Post, target string, mediaURLs []string, now time.Time) (string, error) {
	integration, err := s.IntegrationRepo.GetByBusinessAndProvider(ctx, post.BusinessID, target)
	if err != nil {
		return "", &provider.Error{
			Provider: target,
			Kind:     model.ErrorKindIntegration,
			Message:  "平台未连接，请先完成授权",
		}
	}
	if !integration.IsUsable() {
		return "", &provider.Error{
			Provider: target,
			Kind:     model.ErrorKindIntegration,
			Message:  "平台连接已断开，请重新授权",
		}
	}

	// 令牌已过期：不发起任何外部调用，直接要求重新连接
	if integration.TokenExpired(now) {
		return "", &provider.Error{
			Provider: target,
			Kind:     model.ErrorKindIntegration,
			Message:  "授权令牌已过期，请重新连接平台",
		}
	}

	accessToken, err := s.Cipher.Decrypt(integration.AccessToken)
	if err != nil {
		return "", &provider.Error{
			Provider: target,
			Kind:     model.ErrorKindIntegration,
			Message:  fmt.Sprintf("令牌解密失败: %v", err),
		}
	}

	adapter, err := s.Registry.Get(target)
	if err != nil {
		return "", &provider.Error{
			Provider: target,
			Kind:     model.ErrorKindPermanent,
			Message:  err.Error(),
		}
	}

	return adapter.Publish(ctx, provider.PublishRequest{
		PageID:      integration.ProviderPageID,
		AccessToken: accessToken,
		Caption:     post.Caption,
		MediaURLs:   mediaURLs,
		PostType:    post.PostType,
	})
}

// worstKind 多平台失败时取最需要用户关注的分类
// integration > permanent > transient
func worstKind(failures []providerFailure) string {
	kind := model.ErrorKindTransient
	for _, f := range failures {
		switch f.kind {
		case model.ErrorKindIntegration:
			return model.ErrorKindIntegration
		case model.ErrorKindPermanent:
			kind = model.ErrorKindPermanent
		}
	}
	return kind
}

// summarize 拼接逐平台失败摘要
func summarize(failures []providerFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.provider, f.message))
	}
	return strings.Join(parts, "; ")
}
