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

// PostInput 创建/编辑帖子的输入
type PostInput struct {
	Title           string
	Caption         string
	PostType        string
	PlatformTargets []string
	ScheduledAt     *time.Time
	Media           []model.PostMedia
}

var (
	ErrCaptionTooLong  = fmt.Errorf("文案超出 %d 字符上限", model.MaxCaptionLength)
	ErrPostBusy        = errors.New("帖子正在发布中，请稍后")
	ErrQuotaExceeded   = errors.New("本月帖子配额已用完，请升级订阅")
	ErrRetryExhausted  = errors.New("该错误类型不支持重试，请先处理连接或内容问题")
	ErrDeletePublishing = errors.New("发布中的帖子不可删除")
	ErrAutoPostingOff  = errors.New("当前订阅不包含自动发布功能，请升级订阅")
	ErrIntegrationInactive = errors.New("目标平台未连接或连接已失效")
)

// ==================== 服务 ====================

// PostService 帖子生命周期服务
type PostService struct {
	PostRepo        repository.PostRepository
	MediaRepo       repository.PostMediaRepository
	IntegrationRepo repository.IntegrationRepository
	Publisher       *PublisherService
	Queue           *PublishQueue
	Entitlement     *EntitlementService
	Storage         *StorageService
}

// NewPostService 工厂方法，storage 可为 nil（删除时跳过对象存储清理）
func NewPostService(
	postRepo repository.PostRepository,
	mediaRepo repository.PostMediaRepository,
	integrationRepo repository.IntegrationRepository,
	publisher *PublisherService,
	queue *PublishQueue,
	entitlement *EntitlementService,
	storage *StorageService,
) *PostService {
	return &PostService{
		PostRepo:        postRepo,
		MediaRepo:       mediaRepo,
		IntegrationRepo: integrationRepo,
		Publisher:       publisher,
		Queue:           queue,
		Entitlement:     entitlement,
		Storage:         storage,
	}
}

// validateInput 公共输入校验
func validateInput(input *PostInput) error {
	if len(input.Caption) > model.MaxCaptionLength {
		return ErrCaptionTooLong
	}
	for _, target := range input.PlatformTargets {
		if !model.IsValidProvider(target) {
			return fmt.Errorf("不支持的平台: %s", target)
		}
	}
	if input.ScheduledAt != nil && input.ScheduledAt.Before(time.Now()) {
		return model.ErrScheduleInPast
	}
	return nil
}

// Create 创建帖子
// 带 ScheduledAt 的直接进入 scheduled，必须至少选择一个平台；
// 纯草稿允许平台留空，排期时再补
func (s *PostService) Create(ctx context.Context, businessID int64, input PostInput, ent *Entitlements) (*model.Post, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	// 配额一次检查，快照来自请求边界
	if ent != nil {
		used, err := s.Entitlement.PostsUsedThisMonth(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if ok, _ := ent.CheckPostQuota(used); !ok {
			return nil, ErrQuotaExceeded
		}
	}

	status := model.PostStatusDraft
	if input.ScheduledAt != nil {
		if len(input.PlatformTargets) == 0 {
			return nil, model.ErrNoPlatformTargets
		}
		status = model.PostStatusScheduled
	}

	postType := input.PostType
	if postType == "" {
		postType = model.PostTypeStandard
	}

	post := &model.Post{
		BusinessID:      businessID,
		Title:           input.Title,
		Caption:         input.Caption,
		PostType:        postType,
		Status:          status,
		ScheduledAt:     input.ScheduledAt,
		PlatformTargets: model.StringSlice(input.PlatformTargets),
		Media:           input.Media,
	}
	if err := s.PostRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update 编辑帖子（draft/scheduled/failed）
func (s *PostService) Update(ctx context.Context, businessID, id int64, input PostInput) (*model.Post, error) {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := post.CanEdit(); err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Caption = input.Caption
	if input.PostType != "" {
		post.PostType = input.PostType
	}
	if input.PlatformTargets != nil {
		post.PlatformTargets = model.StringSlice(input.PlatformTargets)
	}

	if err := s.PostRepo.UpdateFields(ctx, post.ID, map[string]interface{}{
		"title":            post.Title,
		"caption":          post.Caption,
		"post_type":        post.PostType,
		"platform_targets": &post.PlatformTargets,
	}); err != nil {
		return nil, err
	}

	if input.Media != nil {
		if err := s.MediaRepo.ReplaceForPost(ctx, post.ID, input.Media); err != nil {
			return nil, err
		}
	}

	return s.PostRepo.GetForBusiness(ctx, businessID, id)
}

// Reschedule 改期（draft/scheduled），时间必须在未来
func (s *PostService) Reschedule(ctx context.Context, businessID, id int64, at time.Time) (*model.Post, error) {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := post.CanReschedule(); err != nil {
		return nil, err
	}
	if at.Before(time.Now()) {
		return nil, model.ErrScheduleInPast
	}
	if len(post.PlatformTargets) == 0 {
		return nil, model.ErrNoPlatformTargets
	}

	if err := s.PostRepo.UpdateFields(ctx, post.ID, map[string]interface{}{
		"status":       model.PostStatusScheduled,
		"scheduled_at": at,
	}); err != nil {
		return nil, err
	}
	post.Status = model.PostStatusScheduled
	post.ScheduledAt = &at
	return post, nil
}

// checkAutoPosting 自动发布功能门禁，ent 为 nil 时跳过（内部调用路径）
func (s *PostService) checkAutoPosting(ent *Entitlements) error {
	if ent == nil {
		return nil
	}
	if ok, _ := ent.CheckFeature(model.FeatureAutoPosting); !ok {
		return ErrAutoPostingOff
	}
	return nil
}

// checkTargetsConnected 认领前校验各目标平台的连接可用
// 已拿到远端 ID 的平台不再校验（幂等重试场景）；
// 校验失败帖子状态原地不动，不产生 failed 流转
func (s *PostService) checkTargetsConnected(ctx context.Context, post *model.Post) error {
	for _, target := range post.PlatformTargets {
		if _, done := post.ExternalIDs[target]; done {
			continue
		}
		integration, err := s.IntegrationRepo.GetByBusinessAndProvider(ctx, post.BusinessID, target)
		if err != nil || !integration.IsUsable() {
			return fmt.Errorf("%w: %s", ErrIntegrationInactive, target)
		}
	}
	return nil
}

// PublishNow 立即发布：门禁和连接校验通过后认领入队，
// 外呼在后台 worker 完成，本方法立即返回 publishing 状态
func (s *PostService) PublishNow(ctx context.Context, businessID, id int64, ent *Entitlements) (*model.Post, error) {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if post.Status == model.PostStatusPublished {
		return nil, model.ErrPostImmutable
	}
	if len(post.PlatformTargets) == 0 {
		return nil, model.ErrNoPlatformTargets
	}
	if err := s.checkAutoPosting(ent); err != nil {
		return nil, err
	}
	if err := s.checkTargetsConnected(ctx, post); err != nil {
		return nil, err
	}

	// 条件更新认领：并发的第二次调用在这里落空
	claimed, err := s.PostRepo.ClaimForPublishing(ctx, post.ID,
		[]string{model.PostStatusDraft, model.PostStatusScheduled, model.PostStatusFailed})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrPostBusy
	}

	post.Status = model.PostStatusPublishing
	post.ErrorMessage = ""
	post.ErrorKind = ""
	s.Queue.Enqueue(post)
	return post, nil
}

// Retry 重试失败的帖子
// permanent 类错误重试无意义直接拒绝；已成功的平台由发布器自动跳过
func (s *PostService) Retry(ctx context.Context, businessID, id int64, ent *Entitlements) (*model.Post, error) {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if post.Status != model.PostStatusFailed {
		return nil, model.ErrPostNotRetryable
	}
	if post.ErrorKind == model.ErrorKindPermanent {
		return nil, ErrRetryExhausted
	}
	if err := s.checkAutoPosting(ent); err != nil {
		return nil, err
	}
	if err := s.checkTargetsConnected(ctx, post); err != nil {
		return nil, err
	}

	claimed, err := s.PostRepo.ClaimForPublishing(ctx, post.ID, []string{model.PostStatusFailed})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrPostBusy
	}

	if err := s.PostRepo.IncrementRetry(ctx, post.ID); err != nil {
		return nil, err
	}

	post.Status = model.PostStatusPublishing
	post.ErrorMessage = ""
	post.ErrorKind = ""
	s.Queue.Enqueue(post)
	return post, nil
}

// Duplicate 复制为全新草稿（published 帖子的唯一"修改"途径）
func (s *PostService) Duplicate(ctx context.Context, businessID, id int64) (*model.Post, error) {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}

	copied := post.Duplicate()
	if err := s.PostRepo.Create(ctx, copied); err != nil {
		return nil, err
	}
	return copied, nil
}

// Delete 删除帖子（发布中的不允许删）
// 媒体文件一并从对象存储清掉，清理失败只告警不阻断删除
func (s *PostService) Delete(ctx context.Context, businessID, id int64) error {
	post, err := s.PostRepo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	if post.Status == model.PostStatusPublishing {
		return ErrDeletePublishing
	}

	if s.Storage != nil {
		for _, m := range post.Media {
			if err := s.Storage.Delete(ctx, m.StoragePath); err != nil {
				logger.L().Warn("媒体文件清理失败",
					zap.Int64("post_id", post.ID),
					zap.String("storage_path", m.StoragePath),
					zap.Error(err))
			}
		}
	}

	if err := s.MediaRepo.DeleteByPostID(ctx, post.ID); err != nil {
		return err
	}
	return s.PostRepo.Delete(ctx, post.ID)
}

// Get 查询单条
func (s *PostService) Get(ctx context.Context, businessID, id int64) (*model.Post, error) {
	return s.PostRepo.GetForBusiness(ctx, businessID, id)
}

// List 分页列表
func (s *PostService) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, int64, error) {
	return s.PostRepo.List(ctx, filter)
}
