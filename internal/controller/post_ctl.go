package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// PostController 帖子控制器
type PostController struct {
	postService *service.PostService
	storage     *service.StorageService
}

func NewPostController(s *service.PostService, storage *service.StorageService) *PostController {
	return &PostController{postService: s, storage: storage}
}

func toPostInput(title, caption, postType string, targets []string, media []dto.PostMediaReq) service.PostInput {
	input := service.PostInput{
		Title:           title,
		Caption:         caption,
		PostType:        postType,
		PlatformTargets: targets,
	}
	for _, m := range media {
		input.Media = append(input.Media, model.PostMedia{
			StoragePath: m.StoragePath,
			MimeType:    m.MimeType,
			SortOrder:   m.SortOrder,
		})
	}
	return input
}

// ==================== API 方法 ====================

// Create
// @Summary 创建帖子
// @Description 带 scheduled_at 则进入排期，否则保存为草稿
// @Tags Post (帖子模块)
// @Accept json
// @Produce json
// @Param body body dto.CreatePostReq true "帖子内容"
// @Success 201 {object} model.Post
// @Failure 402 {object} map[string]string "本月配额已用完"
// @Router /api/businesses/{businessID}/posts [post]
func (ctrl *PostController) Create(c *gin.Context) {
	var req dto.CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	input := toPostInput(req.Title, req.Caption, req.PostType, req.PlatformTargets, req.Media)
	input.ScheduledAt = req.ScheduledAt

	post, err := ctrl.postService.Create(c.Request.Context(), middleware.GetBusinessID(c), input, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// List
// @Summary 帖子列表
// @Tags Post (帖子模块)
// @Produce json
// @Param status query string false "状态筛选"
// @Param campaign_id query int false "按活动筛选"
// @Success 200 {object} dto.PostListResp
// @Router /api/businesses/{businessID}/posts [get]
func (ctrl *PostController) List(c *gin.Context) {
	var req dto.PostListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	posts, total, err := ctrl.postService.List(c.Request.Context(), repository.PostFilter{
		BusinessID: middleware.GetBusinessID(c),
		Status:     req.Status,
		CampaignID: req.CampaignID,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PostListResp{Total: total, Items: posts})
}

// Get
// @Summary 帖子详情
// @Tags Post (帖子模块)
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} model.Post
// @Router /api/businesses/{businessID}/posts/{id} [get]
func (ctrl *PostController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := ctrl.postService.Get(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Update
// @Summary 编辑帖子
// @Description 仅草稿、已排期、发布失败状态可编辑
// @Tags Post (帖子模块)
// @Accept json
// @Produce json
// @Param id path int true "帖子ID"
// @Param body body dto.UpdatePostReq true "帖子内容"
// @Success 200 {object} model.Post
// @Failure 409 {object} map[string]string "状态不允许编辑"
// @Router /api/businesses/{businessID}/posts/{id} [put]
func (ctrl *PostController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	input := toPostInput(req.Title, req.Caption, req.PostType, req.PlatformTargets, req.Media)
	post, err := ctrl.postService.Update(c.Request.Context(), middleware.GetBusinessID(c), id, input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Reschedule
// @Summary 帖子改期
// @Tags Post (帖子模块)
// @Accept json
// @Produce json
// @Param id path int true "帖子ID"
// @Param body body dto.ReschedulePostReq true "新时间"
// @Success 200 {object} model.Post
// @Router /api/businesses/{businessID}/posts/{id}/reschedule [post]
func (ctrl *PostController) Reschedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReschedulePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	post, err := ctrl.postService.Reschedule(c.Request.Context(), middleware.GetBusinessID(c), id, req.ScheduledAt)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// PublishNow
// @Summary 立即发布
// @Description 认领后交给后台队列执行，立即返回 publishing 状态的帖子
// @Tags Post (帖子模块)
// @Produce json
// @Param id path int true "帖子ID"
// @Success 202 {object} model.Post
// @Failure 402 {object} map[string]string "订阅不含自动发布"
// @Failure 409 {object} map[string]string "帖子正在发布中/平台连接失效"
// @Router /api/businesses/{businessID}/posts/{id}/publish-now [post]
func (ctrl *PostController) PublishNow(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := ctrl.postService.PublishNow(c.Request.Context(), middleware.GetBusinessID(c), id, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, post)
}

// Retry
// @Summary 重试失败的帖子
// @Description 已成功的平台不会重复发布，执行在后台队列完成
// @Tags Post (帖子模块)
// @Produce json
// @Param id path int true "帖子ID"
// @Success 202 {object} model.Post
// @Failure 409 {object} map[string]string "错误类型不支持重试"
// @Router /api/businesses/{businessID}/posts/{id}/retry [post]
func (ctrl *PostController) Retry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := ctrl.postService.Retry(c.Request.Context(), middleware.GetBusinessID(c), id, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, post)
}

// Duplicate
// @Summary 复制帖子为新草稿
// @Tags Post (帖子模块)
// @Produce json
// @Param id path int true "帖子ID"
// @Success 201 {object} model.Post
// @Router /api/businesses/{businessID}/posts/{id}/duplicate [post]
func (ctrl *PostController) Duplicate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := ctrl.postService.Duplicate(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// Delete
// @Summary 删除帖子
// @Tags Post (帖子模块)
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "发布中不可删除"
// @Router /api/businesses/{businessID}/posts/{id} [delete]
func (ctrl *PostController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.postService.Delete(c.Request.Context(), middleware.GetBusinessID(c), id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// UploadMedia
// @Summary 上传帖子媒体
// @Description 上传图片/视频到对象存储，返回可写进帖子的 storage_path
// @Tags Post (帖子模块)
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "媒体文件 (最大 20MB)"
// @Success 201 {object} map[string]string
// @Router /api/businesses/{businessID}/media [post]
func (ctrl *PostController) UploadMedia(c *gin.Context) {
	if ctrl.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "存储服务未配置"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 file 字段: " + err.Error()})
		return
	}
	if fileHeader.Size > 20<<20 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超出 20MB 上限"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, err)
		return
	}

	url, err := ctrl.storage.Upload(c.Request.Context(), data,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"storage_path": url})
}
