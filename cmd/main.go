package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bizboost_v1_202608/internal/controller"
	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/router"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/internal/task"
	"bizboost_v1_202608/pkg/config"
	"bizboost_v1_202608/pkg/crypto"
	"bizboost_v1_202608/pkg/database"
	"bizboost_v1_202608/pkg/logger"
)

// @title BizBoost API
// @version 1.0
// @description 社媒发布与营销活动编排服务
// @host localhost:8080
// @BasePath /
func main() {
	// 1. 加载配置 + 日志
	cfg := config.Load()
	if err := logger.Init(cfg.LogLevel, cfg.Server.Env, cfg.ServiceName); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)

	// 4. 启动实时推送 + 发布队列 + 定时任务
	go deps.Hub.Run()
	deps.Services.PublishQueue.Start()
	deps.Tasks.Start()

	// 5. 初始化路由
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.InitRoutes(r, deps.RouterDeps)

	// 6. 启动服务
	startServer(r, cfg, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB         *gorm.DB
	Repos      *Repositories
	Services   *Services
	Hub        *realtime.Hub
	Tasks      *task.TaskManager
	RouterDeps *router.Deps
}

// Repositories 仓库集合
type Repositories struct {
	User        repository.UserRepository
	Tier        repository.TierRepository
	Business    repository.BusinessRepository
	Member      repository.TeamMemberRepository
	Post        repository.PostRepository
	PostMedia   repository.PostMediaRepository
	Campaign    repository.CampaignRepository
	CampaignPst repository.CampaignPostRepository
	CampaignUow *repository.CampaignUnitOfWork
	Integration repository.IntegrationRepository
	Customer    repository.CustomerRepository
	Product     repository.ProductRepository
	Sale        repository.SaleRepository
}

// Services 服务集合
type Services struct {
	User         *service.UserService
	Business     *service.BusinessService
	Entitlement  *service.EntitlementService
	Publisher    *service.PublisherService
	PublishQueue *service.PublishQueue
	Post         *service.PostService
	Campaign     *service.CampaignService
	Integration  *service.IntegrationService
	CRM          *service.CRMService
	Storage      *service.StorageService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库并迁移全部表
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(cfg.DB.GetDSN(),
		database.Options{
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		},
		// 账号 & 订阅
		&model.SysUser{}, &model.SubscriptionTier{},
		// 商家 & 团队
		&model.Business{}, &model.TeamMember{},
		// 帖子
		&model.Post{}, &model.PostMedia{},
		// 活动
		&model.Campaign{}, &model.CampaignPost{},
		// 平台连接
		&model.Integration{},
		// CRM
		&model.Customer{}, &model.Product{}, &model.Sale{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := initRepositories(db)

	// 播种内置订阅档位
	if err := repos.Tier.SeedDefaults(context.Background()); err != nil {
		logger.L().Fatal("订阅档位初始化失败", zap.Error(err))
	}

	// -------- 基础设施 --------
	hub := realtime.NewHub()

	cipher, err := crypto.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		logger.L().Fatal("令牌加密密钥无效", zap.Error(err))
	}

	registry := provider.NewDefaultRegistry(cfg.Providers)

	// -------- 业务服务 --------
	services := &Services{
		Storage: initStorageService(cfg),
	}
	services.User = service.NewUserService(repos.User, &cfg.JWT)
	services.Business = service.NewBusinessService(repos.Business, repos.Member)
	services.Entitlement = service.NewEntitlementService(repos.Tier, repos.Post)
	services.Publisher = service.NewPublisherService(repos.Post, repos.Integration, registry, cipher, hub)
	services.PublishQueue = service.NewPublishQueue(services.Publisher, 4, 64)
	services.Post = service.NewPostService(
		repos.Post, repos.PostMedia, repos.Integration,
		services.Publisher, services.PublishQueue, services.Entitlement, services.Storage,
	)
	services.Campaign = service.NewCampaignService(
		repos.Campaign, repos.CampaignPst, repos.Post, repos.Business,
		repos.CampaignUow, services.Publisher,
	)
	services.Integration = service.NewIntegrationService(repos.Integration, registry, cipher, cfg.JWT.SecretKey)
	services.CRM = service.NewCRMService(repos.Customer, repos.Product, repos.Sale, hub)

	// -------- 后台任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		PostRepo:        repos.Post,
		BusinessRepo:    repos.Business,
		CampaignRepo:    repos.Campaign,
		IntegrationRepo: repos.Integration,
		Publisher:       services.Publisher,
		EntitlementSvc:  services.Entitlement,
		CampaignSvc:     services.Campaign,
		IntegrationSvc:  services.Integration,
		Notifier:        hub,
	}, nil)

	// -------- Controller 层 --------
	routerDeps := &router.Deps{
		Cfg:            cfg,
		Hub:            hub,
		BusinessRepo:   repos.Business,
		MemberRepo:     repos.Member,
		EntitlementSvc: services.Entitlement,

		AuthCtl:        controller.NewAuthController(services.User),
		BusinessCtl:    controller.NewBusinessController(services.Business),
		PostCtl:        controller.NewPostController(services.Post, services.Storage),
		CampaignCtl:    controller.NewCampaignController(services.Campaign),
		IntegrationCtl: controller.NewIntegrationController(services.Integration),
		CRMCtl:         controller.NewCRMController(services.CRM),
	}

	return &Dependencies{
		DB:         db,
		Repos:      repos,
		Services:   services,
		Hub:        hub,
		Tasks:      tasks,
		RouterDeps: routerDeps,
	}
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        repository.NewUserRepository(db),
		Tier:        repository.NewTierRepository(db),
		Business:    repository.NewBusinessRepository(db),
		Member:      repository.NewTeamMemberRepository(db),
		Post:        repository.NewPostRepository(db),
		PostMedia:   repository.NewPostMediaRepository(db),
		Campaign:    repository.NewCampaignRepository(db),
		CampaignPst: repository.NewCampaignPostRepository(db),
		CampaignUow: repository.NewCampaignUnitOfWork(db),
		Integration: repository.NewIntegrationRepository(db),
		Customer:    repository.NewCustomerRepository(db),
		Product:     repository.NewProductRepository(db),
		Sale:        repository.NewSaleRepository(db),
	}
}

// initStorageService 初始化存储服务
func initStorageService(cfg *config.Config) *service.StorageService {
	storageSvc, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		logger.L().Warn("存储服务初始化失败，媒体上传不可用", zap.Error(err))
		return nil
	}
	return storageSvc
}

// ==================== 服务启动 ====================

// startServer 启动服务并处理优雅退出
func startServer(r *gin.Engine, cfg *config.Config, deps *Dependencies) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		logger.L().Info("服务启动", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("正在关闭服务...")

	// 先停后台任务，排空发布队列，再关 HTTP
	deps.Tasks.Stop()
	deps.Services.PublishQueue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Fatal("服务强制关闭", zap.Error(err))
	}

	logger.L().Info("服务已退出")
}
