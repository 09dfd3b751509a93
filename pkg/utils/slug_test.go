package utils

import (
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want string
	}{
		{"普通名称", "Lusaka Fresh Produce", "lusaka-fresh-produce"},
		{"带符号", "Mama's Kitchen & Grill", "mama-s-kitchen-grill"},
		{"首尾空白", "  Kitwe Bakery  ", "kitwe-bakery"},
		{"连续分隔符", "A -- B", "a-b"},
		{"数字保留", "Shop 24/7", "shop-24-7"},
		{"全符号兜底", "!!!", "biz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateSlug(tt.seed); got != tt.want {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.seed, got, tt.want)
			}
		})
	}
}

func TestGenerateUniqueSlug(t *testing.T) {
	a := GenerateUniqueSlug("Kabwe Salon")
	b := GenerateUniqueSlug("Kabwe Salon")

	if !strings.HasPrefix(a, "kabwe-salon-") {
		t.Errorf("slug = %q, want kabwe-salon- 前缀", a)
	}
	if a == b {
		t.Error("两次生成的唯一 slug 不应相同")
	}
}
