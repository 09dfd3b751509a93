package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
)

// ==================== Context Keys ====================

const (
	ContextKeyBusiness     = "current_business"
	ContextKeyEntitlements = "entitlements"
	ContextKeyMemberRole   = "member_role"
)

// ==================== Gin 中间件 ====================

// BusinessContext 商家上下文中间件
// 解析 X-Business-ID，校验成员身份，一次性解析订阅权益快照；
// 后续 handler 只读快照，不再回表查档位
func BusinessContext(
	businessRepo repository.BusinessRepository,
	memberRepo repository.TeamMemberRepository,
	entitlementSvc *service.EntitlementService,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Business-ID")
		if raw == "" {
			raw = c.Param("businessID")
		}
		businessID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || businessID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "缺少或无效的商家ID",
			})
			c.Abort()
			return
		}

		userID := GetUserID(c)
		member, err := memberRepo.GetByUserAndBusiness(c.Request.Context(), userID, businessID)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "您不是该商家的成员",
			})
			c.Abort()
			return
		}

		business, err := businessRepo.GetByID(c.Request.Context(), businessID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "商家不存在",
			})
			c.Abort()
			return
		}
		if !business.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "商家已停用",
			})
			c.Abort()
			return
		}

		ent, err := entitlementSvc.Resolve(c.Request.Context(), business)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": "权益解析失败",
			})
			c.Abort()
			return
		}

		c.Set(ContextKeyBusiness, business)
		c.Set(ContextKeyEntitlements, ent)
		c.Set(ContextKeyMemberRole, member.Role)

		c.Next()
	}
}

// RequireMemberRole 商家内角色校验
func RequireMemberRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetMemberRole(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": "商家内权限不足",
		})
		c.Abort()
	}
}

// ==================== Context 取值辅助 ====================

// GetBusiness 从 Context 获取当前商家
func GetBusiness(c *gin.Context) *model.Business {
	if v, exists := c.Get(ContextKeyBusiness); exists {
		if b, ok := v.(*model.Business); ok {
			return b
		}
	}
	return nil
}

// GetBusinessID 从 Context 获取当前商家 ID
func GetBusinessID(c *gin.Context) int64 {
	if b := GetBusiness(c); b != nil {
		return b.ID
	}
	return 0
}

// GetEntitlements 从 Context 获取权益快照
func GetEntitlements(c *gin.Context) *service.Entitlements {
	if v, exists := c.Get(ContextKeyEntitlements); exists {
		if e, ok := v.(*service.Entitlements); ok {
			return e
		}
	}
	return nil
}

// GetMemberRole 从 Context 获取商家内角色
func GetMemberRole(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyMemberRole); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
