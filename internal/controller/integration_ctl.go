package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// IntegrationController 平台连接控制器
type IntegrationController struct {
	integrationService *service.IntegrationService
}

func NewIntegrationController(s *service.IntegrationService) *IntegrationController {
	return &IntegrationController{integrationService: s}
}

// ==================== API 方法 ====================

// Connect
// @Summary 发起平台授权
// @Description 生成带签名 state 的授权跳转链接，前端重定向到该链接
// @Tags Integration (平台连接模块)
// @Produce json
// @Param provider query string true "平台 facebook/instagram/whatsapp/tiktok"
// @Success 200 {object} map[string]string "auth_url"
// @Failure 402 {object} map[string]string "连接数已达上限"
// @Router /api/businesses/{businessID}/integrations/connect [get]
func (ctrl *IntegrationController) Connect(c *gin.Context) {
	var req dto.ConnectReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	authURL, err := ctrl.integrationService.BeginConnect(
		c.Request.Context(), middleware.GetUserID(c), middleware.GetBusinessID(c), req.Provider, middleware.GetEntitlements(c))
	if err != nil {
		fail(c, err)
		return
	}

	// 网络环境限制，返回链接由前端跳转而不是 302
	c.JSON(http.StatusOK, gin.H{
		"message":  "获取成功",
		"auth_url": authURL,
	})
}

// Callback
// @Summary 平台授权回调
// @Description 换取令牌；多个候选页面时返回 needs_page_selection，由前端调 select-page 完成绑定
// @Tags Integration (平台连接模块)
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "安全校验码"
// @Success 200 {object} dto.CallbackResp
// @Failure 401 {object} map[string]string "state 无效或已过期"
// @Router /api/integrations/callback [get]
func (ctrl *IntegrationController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	if errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户拒绝了授权", "provider_msg": errParam})
		return
	}
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要参数 code 或 state"})
		return
	}

	result, err := ctrl.integrationService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		fail(c, err)
		return
	}

	resp := dto.CallbackResp{
		Connected:          result.Integration != nil,
		NeedsPageSelection: result.NeedsPageSelection,
		SessionKey:         result.SessionKey,
	}
	if result.Integration != nil {
		resp.Provider = result.Integration.Provider
	}
	for _, p := range result.Pages {
		resp.Pages = append(resp.Pages, dto.PageOption{ID: p.ID, Name: p.Name, Category: p.Category})
	}

	c.JSON(http.StatusOK, resp)
}

// SelectPage
// @Summary 选择要绑定的页面
// @Description 回调返回多个候选页面时的第二步
// @Tags Integration (平台连接模块)
// @Accept json
// @Produce json
// @Param body body dto.SelectPageReq true "会话键+页面ID"
// @Success 200 {object} model.Integration
// @Failure 500 {object} map[string]string "选择已超时"
// @Router /api/businesses/{businessID}/integrations/select-page [post]
func (ctrl *IntegrationController) SelectPage(c *gin.Context) {
	var req dto.SelectPageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	integration, err := ctrl.integrationService.SelectPage(
		c.Request.Context(), middleware.GetBusinessID(c), req.SessionKey, req.PageID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, integration)
}

// List
// @Summary 已连接平台列表
// @Description 令牌字段不返回，过期未刷新的平台带 reconnect_required 标记
// @Tags Integration (平台连接模块)
// @Produce json
// @Success 200 {array} model.Integration
// @Router /api/businesses/{businessID}/integrations [get]
func (ctrl *IntegrationController) List(c *gin.Context) {
	integrations, err := ctrl.integrationService.ListForBusiness(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, integrations)
}

// Refresh
// @Summary 手动刷新平台令牌
// @Tags Integration (平台连接模块)
// @Produce json
// @Param provider path string true "平台名"
// @Success 200 {object} model.Integration
// @Failure 500 {object} map[string]string "该平台不支持刷新"
// @Router /api/businesses/{businessID}/integrations/{provider}/refresh [post]
func (ctrl *IntegrationController) Refresh(c *gin.Context) {
	integration, err := ctrl.integrationService.RefreshByID(
		c.Request.Context(), middleware.GetBusinessID(c), c.Param("provider"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, integration)
}

// Disconnect
// @Summary 断开平台连接
// @Description 连接记录保留为 revoked 状态，令牌清空
// @Tags Integration (平台连接模块)
// @Produce json
// @Param provider path string true "平台名"
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/integrations/{provider} [delete]
func (ctrl *IntegrationController) Disconnect(c *gin.Context) {
	if err := ctrl.integrationService.Disconnect(
		c.Request.Context(), middleware.GetBusinessID(c), c.Param("provider")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已断开连接"})
}

// Destroy
// @Summary 彻底删除平台连接
// @Description 硬删除连接记录，删除后该平台可重新走完整授权流程
// @Tags Integration (平台连接模块)
// @Produce json
// @Param provider path string true "平台名"
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/integrations/{provider}/destroy [delete]
func (ctrl *IntegrationController) Destroy(c *gin.Context) {
	if err := ctrl.integrationService.Destroy(
		c.Request.Context(), middleware.GetBusinessID(c), c.Param("provider")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "连接记录已删除"})
}
