package provider

import (
	"fmt"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/pkg/config"
)

// Registry 平台适配器注册表
// 按平台名取适配器，测试时可注入桩实现
type Registry struct {
	providers map[string]Provider
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// NewDefaultRegistry 按配置装配全部内置适配器
func NewDefaultRegistry(cfg config.ProvidersConfig) *Registry {
	r := NewRegistry()
	r.Register(NewFacebookProvider(cfg.Facebook))
	r.Register(NewInstagramProvider(cfg.Instagram))
	r.Register(NewWhatsAppProvider(cfg.WhatsApp))
	r.Register(NewTikTokProvider(cfg.TikTok))
	return r
}

// Register 注册适配器，同名覆盖
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get 按平台名取适配器
func (r *Registry) Get(name string) (Provider, error) {
	if !model.IsValidProvider(name) {
		return nil, fmt.Errorf("不支持的平台: %s", name)
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("平台 %s 未配置", name)
	}
	return p, nil
}

// Names 已注册的平台名列表
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
