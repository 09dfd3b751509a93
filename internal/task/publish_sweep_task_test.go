package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
	"bizboost_v1_202608/pkg/crypto"
)

// ==================== Mock 实现 ====================

type stubProvider struct {
	name string

	mu           sync.Mutex
	publishCalls int
	refreshCalls int

	publishFn func(ctx context.Context, req provider.PublishRequest) (string, error)
	refreshFn func(ctx context.Context, refreshToken string) (*provider.TokenSet, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) GetAuthURL(state string) string {
	return "https://auth.example.com/" + s.name + "?state=" + state
}

func (s *stubProvider) ExchangeCode(ctx context.Context, code string) (*provider.TokenSet, error) {
	return &provider.TokenSet{
		AccessToken: "plain-access-token",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}, nil
}

func (s *stubProvider) RefreshToken(ctx context.Context, refreshToken string) (*provider.TokenSet, error) {
	s.mu.Lock()
	s.refreshCalls++
	s.mu.Unlock()

	if s.refreshFn != nil {
		return s.refreshFn(ctx, refreshToken)
	}
	return &provider.TokenSet{
		AccessToken:  "rotated-access-token",
		RefreshToken: "rotated-refresh-token",
		ExpiresAt:    time.Now().Add(48 * time.Hour),
	}, nil
}

func (s *stubProvider) ListPages(ctx context.Context, accessToken string) ([]provider.Page, error) {
	return []provider.Page{{ID: "page_1", Name: "测试页面"}}, nil
}

func (s *stubProvider) Publish(ctx context.Context, req provider.PublishRequest) (string, error) {
	s.mu.Lock()
	s.publishCalls++
	s.mu.Unlock()

	if s.publishFn != nil {
		return s.publishFn(ctx, req)
	}
	return "ext_" + s.name + "_1", nil
}

func (s *stubProvider) PublishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishCalls
}

func (s *stubProvider) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

type stubRegistry struct {
	providers map[string]provider.Provider
}

func (r *stubRegistry) Get(name string) (provider.Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("未注册的平台: %s", name)
}

type stubNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *stubNotifier) Notify(businessID int64, excludeID string, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *stubNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.events...)
}

// ==================== 测试辅助函数 ====================

func setupTaskTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.SubscriptionTier{},
		&model.Business{},
		&model.Post{}, &model.PostMedia{},
		&model.Campaign{}, &model.CampaignPost{},
		&model.Integration{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTaskCipher(t *testing.T) *crypto.TokenCipher {
	t.Helper()
	cipher, err := crypto.NewTokenCipher("unit-test-encryption-key")
	if err != nil {
		t.Fatalf("创建加解密器失败: %v", err)
	}
	return cipher
}

// seedTaskIntegration 落一条加密令牌的集成记录
func seedTaskIntegration(t *testing.T, db *gorm.DB, cipher *crypto.TokenCipher, businessID int64, providerName, refreshToken string, expiresAt time.Time) *model.Integration {
	t.Helper()
	enc, err := cipher.Encrypt("plain-access-token")
	if err != nil {
		t.Fatalf("令牌加密失败: %v", err)
	}
	encRefresh, err := cipher.Encrypt(refreshToken)
	if err != nil {
		t.Fatalf("刷新令牌加密失败: %v", err)
	}

	integration := &model.Integration{
		BusinessID:     businessID,
		Provider:       providerName,
		ProviderPageID: "page_1",
		DisplayName:    "测试页面",
		AccessToken:    enc,
		RefreshToken:   encRefresh,
		TokenExpiresAt: expiresAt,
		Status:         model.IntegrationStatusActive,
	}
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("写入集成记录失败: %v", err)
	}
	return integration
}

func newTaskPublisher(t *testing.T, db *gorm.DB, fb *stubProvider) (*service.PublisherService, *stubNotifier) {
	t.Helper()
	cipher := newTaskCipher(t)
	seedTaskIntegration(t, db, cipher, 1, model.ProviderFacebook, "", time.Now().Add(24*time.Hour))

	notifier := &stubNotifier{}
	registry := &stubRegistry{providers: map[string]provider.Provider{
		model.ProviderFacebook: fb,
	}}
	svc := service.NewPublisherService(
		repository.NewPostRepository(db),
		repository.NewIntegrationRepository(db),
		registry, cipher, notifier,
	)
	return svc, notifier
}

// seedTaskBusiness 落一个指定档位的商家，内置档位一并播种
func seedTaskBusiness(t *testing.T, db *gorm.DB, tierCode string) *model.Business {
	t.Helper()
	if err := repository.NewTierRepository(db).SeedDefaults(context.Background()); err != nil {
		t.Fatalf("播种订阅档位失败: %v", err)
	}
	business := &model.Business{
		Name:     "Lusaka Fresh Produce",
		Slug:     "lusaka-fresh",
		Industry: "retail",
		OwnerID:  1,
		TierCode: tierCode,
		IsActive: true,
	}
	if err := db.Create(business).Error; err != nil {
		t.Fatalf("写入商家失败: %v", err)
	}
	return business
}

// newSweepTask 带权益解析依赖的排期扫描任务
func newSweepTask(db *gorm.DB, publisher *service.PublisherService) *PublishSweepTask {
	postRepo := repository.NewPostRepository(db)
	return NewPublishSweepTask(
		postRepo,
		repository.NewBusinessRepository(db),
		publisher,
		service.NewEntitlementService(repository.NewTierRepository(db), postRepo),
	)
}

func seedScheduledPost(t *testing.T, db *gorm.DB, scheduledAt time.Time) *model.Post {
	t.Helper()
	post := &model.Post{
		BusinessID:      1,
		Caption:         "今晚特价烤鸡，先到先得",
		Status:          model.PostStatusScheduled,
		PlatformTargets: model.StringSlice{model.ProviderFacebook},
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}
	if err := db.Model(post).UpdateColumn("scheduled_at", scheduledAt).Error; err != nil {
		t.Fatalf("设置排期时间失败: %v", err)
	}
	return post
}

// ==================== 排期扫描测试 ====================

func TestPublishSweepTask_SweepOnce(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	seedTaskBusiness(t, db, model.TierGrowth)
	publisher, notifier := newTaskPublisher(t, db, fb)

	now := time.Now()
	due := seedScheduledPost(t, db, now.Add(-3*time.Minute))
	future := seedScheduledPost(t, db, now.Add(2*time.Hour))

	task := newSweepTask(db, publisher)
	task.SetConcurrency(2, 0)

	dispatched := task.SweepOnce(context.Background(), now)
	if dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatched)
	}
	if fb.PublishCount() != 1 {
		t.Errorf("外呼次数 = %d, want 1", fb.PublishCount())
	}

	var got model.Post
	db.First(&got, due.ID)
	if got.Status != model.PostStatusPublished {
		t.Errorf("到期帖状态 = %s, want published", got.Status)
	}
	got = model.Post{}
	db.First(&got, future.ID)
	if got.Status != model.PostStatusScheduled {
		t.Errorf("未到期帖状态 = %s, want scheduled", got.Status)
	}

	if events := notifier.Events(); len(events) != 1 {
		t.Errorf("推送事件 = %v", events)
	}
}

func TestPublishSweepTask_SweepOnce_AlreadyClaimed(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	seedTaskBusiness(t, db, model.TierGrowth)
	publisher, _ := newTaskPublisher(t, db, fb)

	now := time.Now()
	post := seedScheduledPost(t, db, now.Add(-time.Minute))
	// 另一轮扫描先认领走了
	db.Model(post).UpdateColumn("status", model.PostStatusPublishing)

	task := newSweepTask(db, publisher)
	task.SetConcurrency(2, 0)

	if dispatched := task.SweepOnce(context.Background(), now); dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", dispatched)
	}
	if fb.PublishCount() != 0 {
		t.Errorf("被认领的帖子不应再外呼, count = %d", fb.PublishCount())
	}
}

func TestPublishSweepTask_SweepOnce_Empty(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	publisher, _ := newTaskPublisher(t, db, fb)

	task := newSweepTask(db, publisher)
	if dispatched := task.SweepOnce(context.Background(), time.Now()); dispatched != 0 {
		t.Errorf("空库扫描 dispatched = %d, want 0", dispatched)
	}
}

// 订阅不含自动发布的商家帖子不派发，留在 scheduled 等升级
func TestPublishSweepTask_SweepOnce_FeatureLocked(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	seedTaskBusiness(t, db, model.TierFree)
	publisher, _ := newTaskPublisher(t, db, fb)

	now := time.Now()
	due := seedScheduledPost(t, db, now.Add(-3*time.Minute))

	task := newSweepTask(db, publisher)
	task.SetConcurrency(2, 0)

	if dispatched := task.SweepOnce(context.Background(), now); dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", dispatched)
	}
	if fb.PublishCount() != 0 {
		t.Errorf("免费档位不应外呼, count = %d", fb.PublishCount())
	}

	var got model.Post
	db.First(&got, due.ID)
	if got.Status != model.PostStatusScheduled {
		t.Errorf("帖子状态 = %s, want scheduled", got.Status)
	}
}

// seedFailedTransientPost 落一条瞬时失败的帖子并回拨 updated_at
func seedFailedTransientPost(t *testing.T, db *gorm.DB, retryCount int, updatedAt time.Time) *model.Post {
	t.Helper()
	post := &model.Post{
		BusinessID:      1,
		Caption:         "限流重试",
		Status:          model.PostStatusFailed,
		PlatformTargets: model.StringSlice{model.ProviderFacebook},
		ErrorKind:       model.ErrorKindTransient,
		ErrorMessage:    "facebook: 限流",
		RetryCount:      retryCount,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}
	if err := db.Model(post).UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("设置更新时间失败: %v", err)
	}
	post.UpdatedAt = updatedAt
	return post
}

// 瞬时失败的帖子在退避窗口过后自动重试，计数封顶后不再碰
func TestPublishSweepTask_SweepOnce_RetriesTransient(t *testing.T) {
	db := setupTaskTestDB(t)
	fb := &stubProvider{name: model.ProviderFacebook}
	seedTaskBusiness(t, db, model.TierGrowth)
	publisher, _ := newTaskPublisher(t, db, fb)

	now := time.Now()
	eligible := seedFailedTransientPost(t, db, 0, now.Add(-10*time.Minute))
	tooFresh := seedFailedTransientPost(t, db, 0, now.Add(-time.Minute))
	exhausted := seedFailedTransientPost(t, db, service.MaxAutoRetries, now.Add(-time.Hour))

	task := newSweepTask(db, publisher)
	task.SetConcurrency(2, 0)
	task.SetRetryBackoff(5 * time.Minute)

	if dispatched := task.SweepOnce(context.Background(), now); dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatched)
	}
	if fb.PublishCount() != 1 {
		t.Errorf("外呼次数 = %d, want 1", fb.PublishCount())
	}

	var got model.Post
	db.First(&got, eligible.ID)
	if got.Status != model.PostStatusPublished {
		t.Errorf("重试帖状态 = %s, want published", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}

	// 退避窗口未到的不动
	got = model.Post{}
	db.First(&got, tooFresh.ID)
	if got.Status != model.PostStatusFailed {
		t.Errorf("退避中的帖子状态 = %s, want failed", got.Status)
	}

	// 重试次数封顶的不动
	got = model.Post{}
	db.First(&got, exhausted.ID)
	if got.Status != model.PostStatusFailed || got.RetryCount != service.MaxAutoRetries {
		t.Errorf("封顶帖子被动了: status=%s retry=%d", got.Status, got.RetryCount)
	}
}
