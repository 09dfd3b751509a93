package model

import (
	"errors"
	"testing"
)

// ==================== 序列轮换测试 ====================

func TestSequenceTypeForDay(t *testing.T) {
	tests := []struct {
		day  int
		want string
	}{
		{1, SequenceTypeIntro},
		{2, SequenceTypeEngagement},
		{3, SequenceTypeReminder},
		{4, SequenceTypeCTA},
		{5, SequenceTypeIntro},
		{8, SequenceTypeCTA},
		{9, SequenceTypeIntro},
		{30, SequenceTypeEngagement},
		// 非法天数钳到第 1 天
		{0, SequenceTypeIntro},
		{-3, SequenceTypeIntro},
	}

	for _, tt := range tests {
		if got := SequenceTypeForDay(tt.day); got != tt.want {
			t.Errorf("SequenceTypeForDay(%d) = %s, want %s", tt.day, got, tt.want)
		}
	}
}

func TestIsValidObjective(t *testing.T) {
	for _, o := range CampaignObjectives {
		if !IsValidObjective(o) {
			t.Errorf("IsValidObjective(%s) = false", o)
		}
	}
	if IsValidObjective("get_rich_quick") {
		t.Error("非法目标不应通过校验")
	}
}

// ==================== 生命周期守卫测试 ====================

func TestCampaign_Guards(t *testing.T) {
	tests := []struct {
		name   string
		status string
		check  func(c *Campaign) error
		want   error
	}{
		{"草稿可编辑", CampaignStatusDraft, (*Campaign).CanEdit, nil},
		{"进行中不可编辑", CampaignStatusActive, (*Campaign).CanEdit, ErrCampaignNotDraft},
		{"草稿可启动", CampaignStatusDraft, (*Campaign).CanStart, nil},
		{"已完成不可启动", CampaignStatusCompleted, (*Campaign).CanStart, ErrCampaignNotStartable},
		{"进行中可暂停", CampaignStatusActive, (*Campaign).CanPause, nil},
		{"已暂停不可再暂停", CampaignStatusPaused, (*Campaign).CanPause, ErrCampaignNotPausable},
		{"已暂停可恢复", CampaignStatusPaused, (*Campaign).CanResume, nil},
		{"进行中不可恢复", CampaignStatusActive, (*Campaign).CanResume, ErrCampaignNotResumable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{Status: tt.status}
			if err := tt.check(c); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
