package utils

import (
	"testing"
)

func TestCache_SetGetDelete(t *testing.T) {
	key := "oauth:session:abc123"
	SetCache(key, []string{"page_1", "page_2"})

	val, ok := GetCache(key)
	if !ok {
		t.Fatal("缓存未命中")
	}
	pages, ok := val.([]string)
	if !ok || len(pages) != 2 {
		t.Errorf("缓存值 = %v", val)
	}

	DeleteCache(key)
	if _, ok := GetCache(key); ok {
		t.Error("删除后不应命中")
	}
}

func TestCache_MissingKey(t *testing.T) {
	if _, ok := GetCache("no-such-key"); ok {
		t.Error("不存在的键不应命中")
	}
}
