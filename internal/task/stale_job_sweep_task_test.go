package task

import (
	"context"
	"testing"
	"time"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 卡死兜底测试 ====================

func TestStaleJobSweepTask_SweepOnce(t *testing.T) {
	db := setupTaskTestDB(t)
	notifier := &stubNotifier{}
	task := NewStaleJobSweepTask(repository.NewPostRepository(db), notifier)

	now := time.Now()

	stale := &model.Post{BusinessID: 1, Caption: "卡死的帖", Status: model.PostStatusPublishing}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}
	// worker 崩溃场景：updated_at 停在半小时前
	db.Model(stale).UpdateColumn("updated_at", now.Add(-30*time.Minute))

	fresh := &model.Post{BusinessID: 1, Caption: "刚认领的帖", Status: model.PostStatusPublishing}
	if err := db.Create(fresh).Error; err != nil {
		t.Fatalf("写入帖子失败: %v", err)
	}

	swept := task.SweepOnce(context.Background(), now)
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	var got model.Post
	db.First(&got, stale.ID)
	if got.Status != model.PostStatusFailed {
		t.Errorf("卡死帖状态 = %s, want failed", got.Status)
	}
	if got.ErrorKind != model.ErrorKindTimeout {
		t.Errorf("ErrorKind = %s, want timeout", got.ErrorKind)
	}

	got = model.Post{}
	db.First(&got, fresh.ID)
	if got.Status != model.PostStatusPublishing {
		t.Errorf("未超时的帖被误扫: %s", got.Status)
	}

	events := notifier.Events()
	if len(events) != 1 || events[0] != realtime.EventPostFailed {
		t.Errorf("推送事件 = %v, want [%s]", events, realtime.EventPostFailed)
	}
}

func TestStaleJobSweepTask_SweepOnce_NothingStale(t *testing.T) {
	db := setupTaskTestDB(t)
	notifier := &stubNotifier{}
	task := NewStaleJobSweepTask(repository.NewPostRepository(db), notifier)

	if swept := task.SweepOnce(context.Background(), time.Now()); swept != 0 {
		t.Errorf("swept = %d, want 0", swept)
	}
	if len(notifier.Events()) != 0 {
		t.Error("空扫不应推送事件")
	}
}
