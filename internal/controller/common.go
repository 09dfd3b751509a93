package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/utils"
)

// statusFor 业务错误到 HTTP 状态码的映射
// 守卫类错误统一 409，配额类 402，找不到 404，其余 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	// 状态机守卫
	case errors.Is(err, model.ErrPostImmutable),
		errors.Is(err, model.ErrPostNotEditable),
		errors.Is(err, model.ErrPostNotReschedule),
		errors.Is(err, model.ErrPostNotRetryable),
		errors.Is(err, model.ErrCampaignNotDraft),
		errors.Is(err, model.ErrCampaignNotStartable),
		errors.Is(err, model.ErrCampaignNotPausable),
		errors.Is(err, model.ErrCampaignNotResumable),
		errors.Is(err, service.ErrPostBusy),
		errors.Is(err, service.ErrSequenceExists),
		errors.Is(err, service.ErrDeletePublishing),
		errors.Is(err, service.ErrSlugLocked),
		errors.Is(err, service.ErrRetryExhausted),
		errors.Is(err, service.ErrIntegrationInactive):
		return http.StatusConflict

	// 输入问题
	case errors.Is(err, model.ErrScheduleInPast),
		errors.Is(err, model.ErrNoPlatformTargets),
		errors.Is(err, model.ErrInvalidObjective),
		errors.Is(err, model.ErrCampaignEmpty),
		errors.Is(err, service.ErrCaptionTooLong):
		return http.StatusBadRequest

	// 订阅配额
	case errors.Is(err, service.ErrQuotaExceeded),
		errors.Is(err, service.ErrCampaignQuota),
		errors.Is(err, service.ErrIntegrationQuota),
		errors.Is(err, service.ErrMarketplaceOff),
		errors.Is(err, service.ErrAutoPostingOff):
		return http.StatusPaymentRequired

	// 鉴权相关
	case errors.Is(err, utils.ErrStateInvalid),
		errors.Is(err, utils.ErrTokenInvalid),
		errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// fail 按错误类型返回响应
func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
