package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "bizboost_v1_202608/docs"
	"bizboost_v1_202608/internal/controller"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/config"
	"bizboost_v1_202608/pkg/logger"
)

// Deps 路由依赖
type Deps struct {
	Cfg            *config.Config
	Hub            *realtime.Hub
	BusinessRepo   repository.BusinessRepository
	MemberRepo     repository.TeamMemberRepository
	EntitlementSvc *service.EntitlementService

	AuthCtl        *controller.AuthController
	BusinessCtl    *controller.BusinessController
	PostCtl        *controller.PostController
	CampaignCtl    *controller.CampaignController
	IntegrationCtl *controller.IntegrationController
	CRMCtl         *controller.CRMController
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, deps *Deps) {
	r.Use(middleware.Metrics())

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 运维端点
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.JWTAuth(&deps.Cfg.JWT)
	business := middleware.BusinessContext(deps.BusinessRepo, deps.MemberRepo, deps.EntitlementSvc)

	// 3. API 路由组
	api := r.Group("/api")
	{
		// auth 账号组
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", deps.AuthCtl.Register)
			authGroup.POST("/login", deps.AuthCtl.Login)
			authGroup.POST("/refresh", deps.AuthCtl.Refresh)
			authGroup.GET("/me", auth, deps.AuthCtl.Me)
		}

		// 公开市场目录
		api.GET("/marketplace", deps.BusinessCtl.Marketplace)
		api.GET("/marketplace/:slug", deps.BusinessCtl.GetBySlug)

		// OAuth 回调不带商家上下文，businessID 已签进 state
		api.GET("/integrations/callback", deps.IntegrationCtl.Callback)

		// 商家列表/创建
		api.POST("/businesses", auth, deps.BusinessCtl.Create)
		api.GET("/businesses", auth, deps.BusinessCtl.List)

		// 商家内资源，统一走成员校验 + 权益解析
		biz := api.Group("/businesses/:businessID", auth, business)
		{
			biz.GET("", deps.BusinessCtl.Get)
			biz.PUT("", deps.BusinessCtl.Update)
			biz.PUT("/slug", deps.BusinessCtl.UpdateSlug)
			biz.POST("/onboarding/complete", deps.BusinessCtl.CompleteOnboarding)
			biz.PUT("/marketplace", deps.BusinessCtl.SetMarketplaceListed)
			biz.POST("/media", deps.PostCtl.UploadMedia)

			posts := biz.Group("/posts")
			{
				posts.POST("", deps.PostCtl.Create)
				posts.GET("", deps.PostCtl.List)
				posts.GET("/:id", deps.PostCtl.Get)
				posts.PUT("/:id", deps.PostCtl.Update)
				posts.DELETE("/:id", deps.PostCtl.Delete)
				posts.POST("/:id/reschedule", deps.PostCtl.Reschedule)
				posts.POST("/:id/publish-now", deps.PostCtl.PublishNow)
				posts.POST("/:id/retry", deps.PostCtl.Retry)
				posts.POST("/:id/duplicate", deps.PostCtl.Duplicate)
			}

			campaigns := biz.Group("/campaigns")
			{
				campaigns.POST("", deps.CampaignCtl.Create)
				campaigns.GET("", deps.CampaignCtl.List)
				campaigns.GET("/:id", deps.CampaignCtl.Get)
				campaigns.PUT("/:id", deps.CampaignCtl.Update)
				campaigns.DELETE("/:id", deps.CampaignCtl.Delete)
				campaigns.POST("/:id/generate", deps.CampaignCtl.GenerateSequence)
				campaigns.POST("/:id/start", deps.CampaignCtl.Start)
				campaigns.POST("/:id/pause", deps.CampaignCtl.Pause)
				campaigns.POST("/:id/resume", deps.CampaignCtl.Resume)
			}

			integrations := biz.Group("/integrations")
			{
				integrations.GET("", deps.IntegrationCtl.List)
				integrations.GET("/connect", deps.IntegrationCtl.Connect)
				integrations.POST("/select-page", deps.IntegrationCtl.SelectPage)
				integrations.POST("/:provider/refresh", deps.IntegrationCtl.Refresh)
				integrations.DELETE("/:provider", deps.IntegrationCtl.Disconnect)
				integrations.DELETE("/:provider/destroy", deps.IntegrationCtl.Destroy)
			}

			customers := biz.Group("/customers")
			{
				customers.POST("", deps.CRMCtl.CreateCustomer)
				customers.GET("", deps.CRMCtl.ListCustomers)
				customers.PUT("/:id", deps.CRMCtl.UpdateCustomer)
				customers.DELETE("/:id", deps.CRMCtl.DeleteCustomer)
			}

			products := biz.Group("/products")
			{
				products.POST("", deps.CRMCtl.CreateProduct)
				products.GET("", deps.CRMCtl.ListProducts)
				products.PUT("/:id", deps.CRMCtl.UpdateProduct)
				products.DELETE("/:id", deps.CRMCtl.DeleteProduct)
			}

			sales := biz.Group("/sales")
			{
				sales.POST("", deps.CRMCtl.RecordSale)
				sales.GET("", deps.CRMCtl.ListSales)
				sales.GET("/summary", deps.CRMCtl.SalesSummary)
			}

			// 实时事件推送
			biz.GET("/ws", func(c *gin.Context) {
				clientID := uuid.NewString()
				if err := deps.Hub.ServeWS(c.Writer, c.Request, clientID, middleware.GetBusinessID(c)); err != nil {
					logger.L().Warn("websocket 升级失败", zap.Error(err))
				}
			})
		}
	}
}
