package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/pkg/config"
)

// InstagramProvider Instagram 商业账号发布适配器
// 走 Graph API 两段式：先建媒体容器，再 publish 容器
type InstagramProvider struct {
	cfg    config.ProviderConfig
	client *resty.Client
}

// NewInstagramProvider 创建 Instagram 适配器
func NewInstagramProvider(cfg config.ProviderConfig) *InstagramProvider {
	return &InstagramProvider{
		cfg:    cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *InstagramProvider) Name() string {
	return model.ProviderInstagram
}

func (p *InstagramProvider) GetAuthURL(state string) string {
	scopes := "instagram_basic,instagram_content_publish,pages_show_list"
	return fmt.Sprintf(
		"https://www.facebook.com/v19.0/dialog/oauth?client_id=%s&redirect_uri=%s&state=%s&scope=%s",
		p.cfg.AppID, url.QueryEscape(p.cfg.RedirectURI), state, url.QueryEscape(scopes),
	)
}

func (p *InstagramProvider) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	var tokenResp fbTokenResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client_id":     p.cfg.AppID,
			"client_secret": p.cfg.AppSecret,
			"redirect_uri":  p.cfg.RedirectURI,
			"code":          code,
		}).
		SetResult(&tokenResp).
		Get(fbGraphBase + "/oauth/access_token")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 3600
	}

	return &TokenSet{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// RefreshToken 同 Facebook，长效 token 过期需重新授权
func (p *InstagramProvider) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	return nil, &Error{
		Provider: p.Name(),
		Kind:     model.ErrorKindIntegration,
		Message:  "Instagram 令牌不支持刷新，请重新授权",
	}
}

// ListPages 列出已绑定 Instagram 商业账号的页面
func (p *InstagramProvider) ListPages(ctx context.Context, accessToken string) ([]Page, error) {
	type igAccountsResp struct {
		Data []struct {
			ID                       string `json:"id"`
			Name                     string `json:"name"`
			InstagramBusinessAccount *struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		} `json:"data"`
	}

	var res igAccountsResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,name,instagram_business_account",
			"access_token": accessToken,
		}).
		SetResult(&res).
		Get(fbGraphBase + "/me/accounts")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	var pages []Page
	for _, d := range res.Data {
		if d.InstagramBusinessAccount == nil {
			continue
		}
		pages = append(pages, Page{
			ID:   d.InstagramBusinessAccount.ID,
			Name: d.Name,
		})
	}
	return pages, nil
}

func (p *InstagramProvider) Publish(ctx context.Context, req PublishRequest) (string, error) {
	// Instagram 必须有媒体
	if len(req.MediaURLs) == 0 {
		return "", &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindPermanent,
			Message:  "Instagram 发布必须携带至少一张图片",
		}
	}

	type containerResp struct {
		ID string `json:"id"`
	}

	// 1. 创建媒体容器
	formData := map[string]string{
		"image_url":    req.MediaURLs[0],
		"caption":      req.Caption,
		"access_token": req.AccessToken,
	}
	if req.PostType == model.PostTypeReel {
		formData["media_type"] = "REELS"
		formData["video_url"] = req.MediaURLs[0]
		delete(formData, "image_url")
	}

	var container containerResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(formData).
		SetResult(&container).
		Post(fmt.Sprintf("%s/%s/media", fbGraphBase, req.PageID))
	if err != nil {
		return "", newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return "", newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	// 2. 发布容器
	var published containerResp
	resp, err = p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"creation_id":  container.ID,
			"access_token": req.AccessToken,
		}).
		SetResult(&published).
		Post(fmt.Sprintf("%s/%s/media_publish", fbGraphBase, req.PageID))
	if err != nil {
		return "", newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return "", newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	return published.ID, nil
}
