package task

import (
	"context"
	"testing"
	"time"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/internal/service"
)

// ==================== 令牌保活测试 ====================

func TestTokenWatchdogTask_PatrolOnce_RefreshesExpiring(t *testing.T) {
	db := setupTaskTestDB(t)
	cipher := newTaskCipher(t)
	notifier := &stubNotifier{}

	tiktok := &stubProvider{name: model.ProviderTikTok}
	registry := &stubRegistry{providers: map[string]provider.Provider{
		model.ProviderTikTok: tiktok,
	}}

	repo := repository.NewIntegrationRepository(db)
	svc := service.NewIntegrationService(repo, registry, cipher, "test-state-secret")
	task := NewTokenWatchdogTask(repo, svc, notifier)

	now := time.Now()
	// 一小时后过期，在 2 小时提前量内，应被续期
	expiring := seedTaskIntegration(t, db, cipher, 1, model.ProviderTikTok,
		"plain-refresh-token", now.Add(time.Hour))
	// 还很新鲜的不动
	fresh := seedTaskIntegration(t, db, cipher, 2, model.ProviderTikTok,
		"plain-refresh-token", now.Add(72*time.Hour))

	refreshed := task.PatrolOnce(context.Background(), now)
	if refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", refreshed)
	}
	if tiktok.RefreshCount() != 1 {
		t.Errorf("刷新外呼次数 = %d, want 1", tiktok.RefreshCount())
	}

	// 新令牌加密落库，过期时间后移
	var got model.Integration
	db.First(&got, expiring.ID)
	plain, err := cipher.Decrypt(got.AccessToken)
	if err != nil {
		t.Fatalf("新令牌解密失败: %v", err)
	}
	if plain != "rotated-access-token" {
		t.Errorf("续期后令牌 = %s", plain)
	}
	if !got.TokenExpiresAt.After(now.Add(24 * time.Hour)) {
		t.Errorf("过期时间未后移: %v", got.TokenExpiresAt)
	}

	got = model.Integration{}
	db.First(&got, fresh.ID)
	if got.TokenExpiresAt.Before(now.Add(71 * time.Hour)) {
		t.Error("新鲜令牌被误续期")
	}

	if len(notifier.Events()) != 0 {
		t.Errorf("可续期场景不应推送事件: %v", notifier.Events())
	}
}

func TestTokenWatchdogTask_PatrolOnce_NotifiesExpiredWithoutRefresh(t *testing.T) {
	db := setupTaskTestDB(t)
	cipher := newTaskCipher(t)
	notifier := &stubNotifier{}

	fb := &stubProvider{name: model.ProviderFacebook}
	registry := &stubRegistry{providers: map[string]provider.Provider{
		model.ProviderFacebook: fb,
	}}

	repo := repository.NewIntegrationRepository(db)
	svc := service.NewIntegrationService(repo, registry, cipher, "test-state-secret")
	task := NewTokenWatchdogTask(repo, svc, notifier)

	now := time.Now()
	// facebook 长效令牌没有 refresh_token，过期只能提醒重连
	seedTaskIntegration(t, db, cipher, 1, model.ProviderFacebook, "", now.Add(-time.Hour))

	refreshed := task.PatrolOnce(context.Background(), now)
	if refreshed != 0 {
		t.Errorf("refreshed = %d, want 0", refreshed)
	}
	if fb.RefreshCount() != 0 {
		t.Errorf("无刷新令牌的平台不应外呼续期, count = %d", fb.RefreshCount())
	}

	events := notifier.Events()
	if len(events) != 1 || events[0] != realtime.EventTokenExpired {
		t.Errorf("推送事件 = %v, want [%s]", events, realtime.EventTokenExpired)
	}
}
