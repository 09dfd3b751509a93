package model

import (
	"errors"
	"testing"
)

// ==================== 状态守卫测试 ====================

func TestPost_CanEdit(t *testing.T) {
	tests := []struct {
		status  string
		wantErr error
	}{
		{PostStatusDraft, nil},
		{PostStatusScheduled, nil},
		{PostStatusFailed, nil},
		{PostStatusPublished, ErrPostImmutable},
		{PostStatusPublishing, ErrPostNotEditable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			p := &Post{Status: tt.status}
			if err := p.CanEdit(); !errors.Is(err, tt.wantErr) {
				t.Errorf("CanEdit() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPost_CanReschedule(t *testing.T) {
	tests := []struct {
		status  string
		wantErr error
	}{
		{PostStatusDraft, nil},
		{PostStatusScheduled, nil},
		{PostStatusPublished, ErrPostImmutable},
		{PostStatusPublishing, ErrPostNotReschedule},
		{PostStatusFailed, ErrPostNotReschedule},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			p := &Post{Status: tt.status}
			if err := p.CanReschedule(); !errors.Is(err, tt.wantErr) {
				t.Errorf("CanReschedule() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPost_CanEnterPublishing(t *testing.T) {
	allowed := map[string]bool{
		PostStatusDraft:      true,
		PostStatusScheduled:  true,
		PostStatusFailed:     true,
		PostStatusPublishing: false,
		PostStatusPublished:  false,
	}

	for status, want := range allowed {
		p := &Post{Status: status}
		if got := p.CanEnterPublishing(); got != want {
			t.Errorf("CanEnterPublishing() [%s] = %v, want %v", status, got, want)
		}
	}
}

// ==================== 终态迁移测试 ====================

func TestPost_MarkPublished(t *testing.T) {
	p := &Post{
		Status:       PostStatusPublishing,
		ErrorMessage: "之前的错误",
		ErrorKind:    ErrorKindTransient,
		ExternalIDs:  StringMap{"facebook": "fb_1"},
	}

	p.MarkPublished(map[string]string{"instagram": "ig_1"})

	if p.Status != PostStatusPublished {
		t.Errorf("Status = %s, want published", p.Status)
	}
	if p.PublishedAt == nil {
		t.Error("PublishedAt 未设置")
	}
	// 已有的远端 ID 不能丢
	if p.ExternalIDs["facebook"] != "fb_1" || p.ExternalIDs["instagram"] != "ig_1" {
		t.Errorf("ExternalIDs = %v", p.ExternalIDs)
	}
	if p.ErrorMessage != "" || p.ErrorKind != "" {
		t.Error("发布成功后错误字段应清空")
	}
}

func TestPost_MarkFailed_KeepsExternalIDs(t *testing.T) {
	p := &Post{
		Status:      PostStatusPublishing,
		ExternalIDs: StringMap{"facebook": "fb_1"},
	}

	p.MarkFailed(ErrorKindTransient, "instagram: 限流")

	if p.Status != PostStatusFailed {
		t.Errorf("Status = %s, want failed", p.Status)
	}
	if p.ErrorKind != ErrorKindTransient {
		t.Errorf("ErrorKind = %s", p.ErrorKind)
	}
	// 部分成功的平台记录必须保留，幂等重试依赖它
	if p.ExternalIDs["facebook"] != "fb_1" {
		t.Error("MarkFailed 不应清空已成功平台的远端 ID")
	}
}

func TestPost_Duplicate(t *testing.T) {
	p := &Post{
		BusinessID:      7,
		Title:           "原帖",
		Caption:         "原文案",
		Status:          PostStatusPublished,
		PostType:        PostTypeReel,
		PlatformTargets: StringSlice{"facebook", "instagram"},
		ExternalIDs:     StringMap{"facebook": "fb_1"},
		Media: []PostMedia{
			{StoragePath: "https://cdn.example.com/a.jpg", SortOrder: 0},
		},
	}

	copied := p.Duplicate()

	if copied.Status != PostStatusDraft {
		t.Errorf("副本状态 = %s, want draft", copied.Status)
	}
	if copied.ID != 0 {
		t.Error("副本不应携带原帖 ID")
	}
	if len(copied.ExternalIDs) != 0 {
		t.Error("副本不应携带发布结果")
	}
	if len(copied.Media) != 1 || copied.Media[0].StoragePath != p.Media[0].StoragePath {
		t.Errorf("Media 未复制: %v", copied.Media)
	}
	// 切片必须是独立拷贝
	copied.PlatformTargets[0] = "tiktok"
	if p.PlatformTargets[0] != "facebook" {
		t.Error("PlatformTargets 与原帖共享底层数组")
	}
}
