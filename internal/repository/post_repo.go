package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// PostRepository 帖子仓储接口
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	CreateBatch(ctx context.Context, posts []*model.Post) error
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	GetForBusiness(ctx context.Context, businessID, id int64) (*model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error)
	CountCreatedSince(ctx context.Context, businessID int64, since time.Time) (int64, error)

	// 发布流水线相关
	FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error)
	FindRetryableFailed(ctx context.Context, before time.Time, maxRetries, limit int) ([]*model.Post, error)
	ClaimForPublishing(ctx context.Context, id int64, fromStatuses []string) (bool, error)
	MarkPublished(ctx context.Context, post *model.Post) error
	MarkFailed(ctx context.Context, post *model.Post) error
	FindStalePublishing(ctx context.Context, before time.Time, limit int) ([]*model.Post, error)
	IncrementRetry(ctx context.Context, id int64) error
}

// PostMediaRepository 帖子媒体仓储接口
type PostMediaRepository interface {
	CreateBatch(ctx context.Context, media []model.PostMedia) error
	GetByPostID(ctx context.Context, postID int64) ([]model.PostMedia, error)
	DeleteByPostID(ctx context.Context, postID int64) error
	ReplaceForPost(ctx context.Context, postID int64, media []model.PostMedia) error
}

// PostFilter 帖子列表过滤条件
type PostFilter struct {
	BusinessID int64
	CampaignID int64
	Status     string
	Platform   string
	Page       int
	PageSize   int
}

// ==================== Post 仓储实现 ====================

type postRepo struct {
	db *gorm.DB
}

// NewPostRepository 创建帖子仓储
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepo{db: db}
}

func (r *postRepo) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepo) CreateBatch(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&posts).Error
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) GetForBusiness(ctx context.Context, businessID, id int64) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("business_id = ?", businessID).
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error
}

func (r *postRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Post{}, id).Error
}

func (r *postRepo) List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Post{})

	if filter.BusinessID > 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if filter.CampaignID > 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Preload("Media").
		Order("created_at DESC").
		Limit(filter.PageSize).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *postRepo) CountCreatedSince(ctx context.Context, businessID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("business_id = ? AND created_at >= ?", businessID, since).
		Count(&count).Error
	return count, err
}

// FindDueScheduled 查找到期待发布的帖子
func (r *postRepo) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Media").
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", model.PostStatusScheduled, now).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// FindRetryableFailed 查找可自动重试的瞬时失败帖子
// 只挑 transient 分类，integration/permanent 必须等用户处理
func (r *postRepo) FindRetryableFailed(ctx context.Context, before time.Time, maxRetries, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Media").
		Where("status = ? AND error_kind = ? AND retry_count < ? AND updated_at <= ?",
			model.PostStatusFailed, model.ErrorKindTransient, maxRetries, before).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// ClaimForPublishing 认领帖子进入 publishing 状态
// 单写者约束：条件更新保证并发的两次重试只有一个能认领成功
func (r *postRepo) ClaimForPublishing(ctx context.Context, id int64, fromStatuses []string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(map[string]interface{}{
			"status":        model.PostStatusPublishing,
			"error_message": "",
			"error_kind":    "",
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPublished 发布成功落库
// 只有持有 publishing 状态的 worker 允许写终态
func (r *postRepo) MarkPublished(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status = ?", post.ID, model.PostStatusPublishing).
		Updates(map[string]interface{}{
			"status":        model.PostStatusPublished,
			"published_at":  post.PublishedAt,
			"external_ids":  &post.ExternalIDs,
			"error_message": "",
			"error_kind":    "",
		}).Error
}

// MarkFailed 发布失败落库，保留已成功平台的 external_ids
func (r *postRepo) MarkFailed(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status = ?", post.ID, model.PostStatusPublishing).
		Updates(map[string]interface{}{
			"status":        model.PostStatusFailed,
			"external_ids":  &post.ExternalIDs,
			"error_message": post.ErrorMessage,
			"error_kind":    post.ErrorKind,
		}).Error
}

// FindStalePublishing 查找卡死在 publishing 的帖子（兜底超时）
func (r *postRepo) FindStalePublishing(ctx context.Context, before time.Time, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.PostStatusPublishing, before).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// IncrementRetry 重试计数 +1
func (r *postRepo) IncrementRetry(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

// ==================== PostMedia 仓储实现 ====================

type postMediaRepo struct {
	db *gorm.DB
}

// NewPostMediaRepository 创建帖子媒体仓储
func NewPostMediaRepository(db *gorm.DB) PostMediaRepository {
	return &postMediaRepo{db: db}
}

func (r *postMediaRepo) CreateBatch(ctx context.Context, media []model.PostMedia) error {
	if len(media) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&media).Error
}

func (r *postMediaRepo) GetByPostID(ctx context.Context, postID int64) ([]model.PostMedia, error) {
	var media []model.PostMedia
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("sort_order ASC").
		Find(&media).Error
	return media, err
}

func (r *postMediaRepo) DeleteByPostID(ctx context.Context, postID int64) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.PostMedia{}).Error
}

// ReplaceForPost 整体替换帖子的媒体列表（编辑场景）
func (r *postMediaRepo) ReplaceForPost(ctx context.Context, postID int64, media []model.PostMedia) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&model.PostMedia{}).Error; err != nil {
			return err
		}
		if len(media) == 0 {
			return nil
		}
		for i := range media {
			media[i].PostID = postID
			media[i].ID = 0
		}
		return tx.Create(&media).Error
	})
}
