package task

import (
	"context"
	"errors"
	"time"

	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/logger"
)

// ErrTaskDisabled 任务未启用
var ErrTaskDisabled = errors.New("该任务未启用")

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
// 管理范围：排期扫描、活动派发、令牌保活、卡死兜底
type TaskManager struct {
	publishSweep   *PublishSweepTask
	campaignRunner *CampaignRunnerTask
	tokenWatchdog  *TokenWatchdogTask
	staleJobSweep  *StaleJobSweepTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	PostRepo        repository.PostRepository
	BusinessRepo    repository.BusinessRepository
	CampaignRepo    repository.CampaignRepository
	IntegrationRepo repository.IntegrationRepository

	Publisher      *service.PublisherService
	EntitlementSvc *service.EntitlementService
	CampaignSvc    *service.CampaignService
	IntegrationSvc *service.IntegrationService
	Notifier       service.Notifier
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	PublishSweepEnabled     bool
	PublishSweepConcurrency int

	CampaignRunnerEnabled     bool
	CampaignRunnerConcurrency int

	TokenWatchdogEnabled bool
	StaleJobSweepEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		PublishSweepEnabled:     true,
		PublishSweepConcurrency: 10,

		CampaignRunnerEnabled:     true,
		CampaignRunnerConcurrency: 5,

		TokenWatchdogEnabled: true,
		StaleJobSweepEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.PublishSweepEnabled && deps.Publisher != nil {
		tm.publishSweep = NewPublishSweepTask(deps.PostRepo, deps.BusinessRepo, deps.Publisher, deps.EntitlementSvc)
		tm.publishSweep.SetConcurrency(cfg.PublishSweepConcurrency, 100*time.Millisecond)
	}

	if cfg.CampaignRunnerEnabled && deps.CampaignSvc != nil {
		tm.campaignRunner = NewCampaignRunnerTask(deps.CampaignRepo, deps.CampaignSvc)
		tm.campaignRunner.SetConcurrency(cfg.CampaignRunnerConcurrency, 100*time.Millisecond)
	}

	if cfg.TokenWatchdogEnabled && deps.IntegrationSvc != nil {
		tm.tokenWatchdog = NewTokenWatchdogTask(deps.IntegrationRepo, deps.IntegrationSvc, deps.Notifier)
	}

	if cfg.StaleJobSweepEnabled {
		tm.staleJobSweep = NewStaleJobSweepTask(deps.PostRepo, deps.Notifier)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	logger.L().Info("正在启动后台任务...")

	if tm.publishSweep != nil {
		tm.publishSweep.Start()
	}
	if tm.campaignRunner != nil {
		tm.campaignRunner.Start()
	}
	if tm.tokenWatchdog != nil {
		tm.tokenWatchdog.Start()
	}
	if tm.staleJobSweep != nil {
		tm.staleJobSweep.Start()
	}

	logger.L().Info("后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	logger.L().Info("正在停止后台任务...")

	if tm.publishSweep != nil {
		tm.publishSweep.Stop()
	}
	if tm.campaignRunner != nil {
		tm.campaignRunner.Stop()
	}
	if tm.tokenWatchdog != nil {
		tm.tokenWatchdog.Stop()
	}
	if tm.staleJobSweep != nil {
		tm.staleJobSweep.Stop()
	}

	logger.L().Info("后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerPublishSweep 手动触发一轮排期扫描
func (tm *TaskManager) TriggerPublishSweep(ctx context.Context) (int, error) {
	if tm.publishSweep == nil {
		return 0, ErrTaskDisabled
	}
	return tm.publishSweep.SweepOnce(ctx, time.Now()), nil
}

// TriggerCampaignRun 手动触发一轮活动派发
func (tm *TaskManager) TriggerCampaignRun(ctx context.Context) (int, error) {
	if tm.campaignRunner == nil {
		return 0, ErrTaskDisabled
	}
	return tm.campaignRunner.RunOnce(ctx, time.Now()), nil
}

// TriggerTokenPatrol 手动触发一轮令牌巡检
func (tm *TaskManager) TriggerTokenPatrol(ctx context.Context) (int, error) {
	if tm.tokenWatchdog == nil {
		return 0, ErrTaskDisabled
	}
	return tm.tokenWatchdog.PatrolOnce(ctx, time.Now()), nil
}

// TriggerStaleSweep 手动触发一轮卡死兜底
func (tm *TaskManager) TriggerStaleSweep(ctx context.Context) (int, error) {
	if tm.staleJobSweep == nil {
		return 0, ErrTaskDisabled
	}
	return tm.staleJobSweep.SweepOnce(ctx, time.Now()), nil
}
