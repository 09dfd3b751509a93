package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/service"
)

type AuthController struct {
	userService *service.UserService
}

func NewAuthController(s *service.UserService) *AuthController {
	return &AuthController{userService: s}
}

// Register
// @Summary 注册账号
// @Tags Auth (账号模块)
// @Accept json
// @Produce json
// @Param body body dto.RegisterReq true "注册信息"
// @Success 201 {object} map[string]interface{} "新账号信息"
// @Failure 409 {object} map[string]string "用户名已被占用"
// @Router /api/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	user, err := ctrl.userService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "注册成功",
		"user":    user,
	})
}

// Login
// @Summary 登录换取令牌
// @Tags Auth (账号模块)
// @Accept json
// @Produce json
// @Param body body dto.LoginReq true "登录信息"
// @Success 200 {object} map[string]interface{} "令牌组+用户信息"
// @Failure 401 {object} map[string]string "用户名或密码错误"
// @Router /api/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	pair, user, err := ctrl.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

// Refresh
// @Summary 刷新访问令牌
// @Tags Auth (账号模块)
// @Accept json
// @Produce json
// @Param body body dto.RefreshReq true "刷新令牌"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} map[string]string "刷新令牌无效"
// @Router /api/auth/refresh [post]
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req dto.RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	pair, err := ctrl.userService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Me
// @Summary 当前登录用户信息
// @Tags Auth (账号模块)
// @Produce json
// @Success 200 {object} model.SysUser
// @Router /api/auth/me [get]
func (ctrl *AuthController) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := ctrl.userService.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
