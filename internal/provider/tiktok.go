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

const tiktokAPIBase = "https://open.tiktokapis.com/v2"

// TikTokProvider TikTok 内容发布适配器
type TikTokProvider struct {
	cfg    config.ProviderConfig
	client *resty.Client
}

// NewTikTokProvider 创建 TikTok 适配器
func NewTikTokProvider(cfg config.ProviderConfig) *TikTokProvider {
	return &TikTokProvider{
		cfg:    cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *TikTokProvider) Name() string {
	return model.ProviderTikTok
}

func (p *TikTokProvider) GetAuthURL(state string) string {
	scopes := "user.info.basic,video.publish"
	return fmt.Sprintf(
		"https://www.tiktok.com/v2/auth/authorize/?client_key=%s&response_type=code&scope=%s&redirect_uri=%s&state=%s",
		p.cfg.AppID, url.QueryEscape(scopes), url.QueryEscape(p.cfg.RedirectURI), state,
	)
}

type tiktokTokenResp struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *TikTokProvider) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	var tokenResp tiktokTokenResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"client_key":    p.cfg.AppID,
			"client_secret": p.cfg.AppSecret,
			"code":          code,
			"grant_type":    "authorization_code",
			"redirect_uri":  p.cfg.RedirectURI,
		}).
		SetResult(&tokenResp).
		Post(tiktokAPIBase + "/oauth/token/")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}
	if tokenResp.Error != "" {
		return nil, &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindIntegration,
			Message:  fmt.Sprintf("授权失败: %s", tokenResp.ErrorDescription),
		}
	}

	return &TokenSet{
		AccessToken:    tokenResp.AccessToken,
		RefreshToken:   tokenResp.RefreshToken,
		ExpiresAt:      time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		ProviderUserID: tokenResp.OpenID,
	}, nil
}

func (p *TikTokProvider) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	var tokenResp tiktokTokenResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"client_key":    p.cfg.AppID,
			"client_secret": p.cfg.AppSecret,
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&tokenResp).
		Post(tiktokAPIBase + "/oauth/token/")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}
	if tokenResp.Error != "" {
		return nil, &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindIntegration,
			Message:  fmt.Sprintf("令牌刷新被拒绝: %s", tokenResp.ErrorDescription),
		}
	}

	newRefresh := tokenResp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return &TokenSet{
		AccessToken:    tokenResp.AccessToken,
		RefreshToken:   newRefresh,
		ExpiresAt:      time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		ProviderUserID: tokenResp.OpenID,
	}, nil
}

// ListPages TikTok 无页面概念，返回授权用户自身
func (p *TikTokProvider) ListPages(ctx context.Context, accessToken string) ([]Page, error) {
	type userInfoResp struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
			} `json:"user"`
		} `json:"data"`
	}

	var res userInfoResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+accessToken).
		SetQueryParam("fields", "open_id,display_name").
		SetResult(&res).
		Get(tiktokAPIBase + "/user/info/")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	return []Page{{
		ID:   res.Data.User.OpenID,
		Name: res.Data.User.DisplayName,
	}}, nil
}

func (p *TikTokProvider) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if len(req.MediaURLs) == 0 {
		return "", &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindPermanent,
			Message:  "TikTok 发布必须携带视频",
		}
	}

	type publishResp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         req.Caption,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": req.MediaURLs[0],
		},
	}

	var res publishResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+req.AccessToken).
		SetBody(body).
		SetResult(&res).
		Post(tiktokAPIBase + "/post/publish/video/init/")
	if err != nil {
		return "", newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return "", newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}
	if res.Error.Code != "" && res.Error.Code != "ok" {
		return "", &Error{
			Provider:   p.Name(),
			Kind:       model.ErrorKindPermanent,
			StatusCode: resp.StatusCode(),
			Message:    fmt.Sprintf("发布被拒绝 [%s]: %s", res.Error.Code, res.Error.Message),
		}
	}

	return res.Data.PublishID, nil
}
