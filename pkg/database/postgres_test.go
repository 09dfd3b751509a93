package database

import (
	"testing"
	"time"
)

func TestOptions_WithDefaults(t *testing.T) {
	// 零值全部回退
	got := Options{}.withDefaults()
	if got.MaxIdleConns != 10 || got.MaxOpenConns != 100 || got.ConnMaxLifetime != time.Hour {
		t.Errorf("withDefaults() = %+v", got)
	}

	// 显式配置原样保留
	custom := Options{
		MaxIdleConns:    5,
		MaxOpenConns:    40,
		ConnMaxLifetime: 30 * time.Minute,
	}
	got = custom.withDefaults()
	if got != custom {
		t.Errorf("withDefaults() = %+v, want %+v", got, custom)
	}

	// 非法负值同样回退
	got = Options{MaxIdleConns: -1, MaxOpenConns: -1, ConnMaxLifetime: -time.Minute}.withDefaults()
	if got.MaxIdleConns != 10 || got.MaxOpenConns != 100 || got.ConnMaxLifetime != time.Hour {
		t.Errorf("负值未回退: %+v", got)
	}
}
