package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// CampaignController 营销活动控制器
type CampaignController struct {
	campaignService *service.CampaignService
}

func NewCampaignController(s *service.CampaignService) *CampaignController {
	return &CampaignController{campaignService: s}
}

// ==================== API 方法 ====================

// Create
// @Summary 创建营销活动
// @Tags Campaign (活动模块)
// @Accept json
// @Produce json
// @Param body body dto.CreateCampaignReq true "活动信息"
// @Success 201 {object} model.Campaign
// @Failure 402 {object} map[string]string "活动配额已用完"
// @Router /api/businesses/{businessID}/campaigns [post]
func (ctrl *CampaignController) Create(c *gin.Context) {
	var req dto.CreateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	campaign, err := ctrl.campaignService.Create(c.Request.Context(), middleware.GetBusinessID(c), service.CampaignInput{
		Name:            req.Name,
		Objective:       req.Objective,
		DurationDays:    req.DurationDays,
		TargetPlatforms: req.TargetPlatforms,
		TemplateID:      req.TemplateID,
		AutoGenerate:    req.AutoGenerate,
		PostingTimes:    req.PostingTimes,
	}, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// List
// @Summary 活动列表
// @Tags Campaign (活动模块)
// @Produce json
// @Param status query string false "状态筛选"
// @Param objective query string false "按营销目标筛选"
// @Success 200 {object} dto.CampaignListResp
// @Router /api/businesses/{businessID}/campaigns [get]
func (ctrl *CampaignController) List(c *gin.Context) {
	var req dto.CampaignListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	campaigns, total, err := ctrl.campaignService.List(c.Request.Context(), repository.CampaignFilter{
		BusinessID: middleware.GetBusinessID(c),
		Status:     req.Status,
		Objective:  req.Objective,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CampaignListResp{Total: total, Items: campaigns})
}

// Get
// @Summary 活动详情（含序列）
// @Tags Campaign (活动模块)
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} model.Campaign
// @Router /api/businesses/{businessID}/campaigns/{id} [get]
func (ctrl *CampaignController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := ctrl.campaignService.Get(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// Update
// @Summary 编辑活动
// @Description 仅草稿状态可编辑
// @Tags Campaign (活动模块)
// @Accept json
// @Produce json
// @Param id path int true "活动ID"
// @Param body body dto.UpdateCampaignReq true "活动信息"
// @Success 200 {object} model.Campaign
// @Failure 409 {object} map[string]string "非草稿状态"
// @Router /api/businesses/{businessID}/campaigns/{id} [put]
func (ctrl *CampaignController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	campaign, err := ctrl.campaignService.Update(c.Request.Context(), middleware.GetBusinessID(c), id, service.CampaignInput{
		Name:            req.Name,
		Objective:       req.Objective,
		DurationDays:    req.DurationDays,
		TargetPlatforms: req.TargetPlatforms,
		PostingTimes:    req.PostingTimes,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// GenerateSequence
// @Summary 生成活动帖子序列
// @Description 按营销目标模板为每天生成一条草稿帖子
// @Tags Campaign (活动模块)
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} model.Campaign
// @Failure 409 {object} map[string]string "序列已存在"
// @Router /api/businesses/{businessID}/campaigns/{id}/generate [post]
func (ctrl *CampaignController) GenerateSequence(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := ctrl.campaignService.GenerateSequence(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Start
// @Summary 启动活动
// @Description 过去的开始日期会被修正为当前时间
// @Tags Campaign (活动模块)
// @Accept json
// @Produce json
// @Param id path int true "活动ID"
// @Param body body dto.StartCampaignReq true "开始日期"
// @Success 200 {object} model.Campaign
// @Failure 409 {object} map[string]string "活动不可启动"
// @Router /api/businesses/{businessID}/campaigns/{id}/start [post]
func (ctrl *CampaignController) Start(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.StartCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	campaign, err := ctrl.campaignService.Start(c.Request.Context(), middleware.GetBusinessID(c), id, req.StartDate)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Pause
// @Summary 暂停活动
// @Tags Campaign (活动模块)
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} model.Campaign
// @Router /api/businesses/{businessID}/campaigns/{id}/pause [post]
func (ctrl *CampaignController) Pause(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := ctrl.campaignService.Pause(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Resume
// @Summary 恢复活动
// @Tags Campaign (活动模块)
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} model.Campaign
// @Router /api/businesses/{businessID}/campaigns/{id}/resume [post]
func (ctrl *CampaignController) Resume(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := ctrl.campaignService.Resume(c.Request.Context(), middleware.GetBusinessID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Delete
// @Summary 删除活动
// @Description 连带删除序列中未发布的草稿帖子
// @Tags Campaign (活动模块)
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/campaigns/{id} [delete]
func (ctrl *CampaignController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.campaignService.Delete(c.Request.Context(), middleware.GetBusinessID(c), id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}
