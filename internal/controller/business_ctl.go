package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// BusinessController 商家控制器
type BusinessController struct {
	businessService *service.BusinessService
}

func NewBusinessController(s *service.BusinessService) *BusinessController {
	return &BusinessController{businessService: s}
}

// ==================== API 方法 ====================

// Create
// @Summary 创建商家
// @Tags Business (商家模块)
// @Accept json
// @Produce json
// @Param body body dto.CreateBusinessReq true "商家信息"
// @Success 201 {object} model.Business
// @Router /api/businesses [post]
func (ctrl *BusinessController) Create(c *gin.Context) {
	var req dto.CreateBusinessReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	business, err := ctrl.businessService.Create(c.Request.Context(), middleware.GetUserID(c), service.BusinessInput{
		Name:     req.Name,
		Industry: req.Industry,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		City:     req.City,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, business)
}

// List 当前用户名下的商家
// @Summary 商家列表
// @Tags Business (商家模块)
// @Produce json
// @Success 200 {array} model.Business
// @Router /api/businesses [get]
func (ctrl *BusinessController) List(c *gin.Context) {
	businesses, err := ctrl.businessService.ListByOwner(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, businesses)
}

// Get
// @Summary 商家详情
// @Tags Business (商家模块)
// @Produce json
// @Success 200 {object} model.Business
// @Router /api/businesses/{businessID} [get]
func (ctrl *BusinessController) Get(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetBusiness(c))
}

// Update
// @Summary 编辑商家资料
// @Tags Business (商家模块)
// @Accept json
// @Produce json
// @Param body body dto.UpdateBusinessReq true "商家信息"
// @Success 200 {object} model.Business
// @Router /api/businesses/{businessID} [put]
func (ctrl *BusinessController) Update(c *gin.Context) {
	var req dto.UpdateBusinessReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	business, err := ctrl.businessService.Update(c.Request.Context(), middleware.GetBusinessID(c), service.BusinessInput{
		Name:     req.Name,
		Industry: req.Industry,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		City:     req.City,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, business)
}

// UpdateSlug
// @Summary 修改商家对外地址
// @Description 已上架市场目录的商家不可再修改 slug
// @Tags Business (商家模块)
// @Accept json
// @Produce json
// @Param body body dto.UpdateSlugReq true "新地址"
// @Success 200 {object} model.Business
// @Failure 409 {object} map[string]string "slug 已锁定"
// @Router /api/businesses/{businessID}/slug [put]
func (ctrl *BusinessController) UpdateSlug(c *gin.Context) {
	var req dto.UpdateSlugReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	business, err := ctrl.businessService.UpdateSlug(c.Request.Context(), middleware.GetBusinessID(c), req.Slug)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, business)
}

// CompleteOnboarding
// @Summary 完成开店引导
// @Tags Business (商家模块)
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/onboarding/complete [post]
func (ctrl *BusinessController) CompleteOnboarding(c *gin.Context) {
	if err := ctrl.businessService.CompleteOnboarding(c.Request.Context(), middleware.GetBusinessID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "引导已完成"})
}

// SetMarketplaceListed
// @Summary 上架/下架市场目录
// @Tags Business (商家模块)
// @Accept json
// @Produce json
// @Success 200 {object} model.Business
// @Failure 402 {object} map[string]string "订阅档位不支持"
// @Router /api/businesses/{businessID}/marketplace [put]
func (ctrl *BusinessController) SetMarketplaceListed(c *gin.Context) {
	var req struct {
		Listed bool `json:"listed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	business, err := ctrl.businessService.SetMarketplaceListed(
		c.Request.Context(), middleware.GetBusinessID(c), req.Listed, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, business)
}

// Marketplace 公开的市场目录，无需登录
// @Summary 市场目录
// @Tags Business (商家模块)
// @Produce json
// @Param industry query string false "按行业筛选"
// @Success 200 {object} dto.ListResp
// @Router /api/marketplace [get]
func (ctrl *BusinessController) Marketplace(c *gin.Context) {
	var req dto.MarketplaceListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	businesses, total, err := ctrl.businessService.ListMarketplace(c.Request.Context(), req.Industry, req.Page, req.PageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResp{Total: total, Items: businesses})
}

// GetBySlug 公开商家主页，无需登录
// @Summary 按 slug 查看商家
// @Tags Business (商家模块)
// @Produce json
// @Success 200 {object} model.Business
// @Router /api/marketplace/{slug} [get]
func (ctrl *BusinessController) GetBySlug(c *gin.Context) {
	business, err := ctrl.businessService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, business)
}

// parseID 路径参数转 int64
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的" + name})
		return 0, false
	}
	return id, true
}
