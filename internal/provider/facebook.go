package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/pkg/config"
)

const fbGraphBase = "https://graph.facebook.com/v19.0"

// FacebookProvider Facebook 页面发布适配器
// 流程：用户授权 -> 换长效用户 token -> 列页面 -> 用页面 token 发帖
type FacebookProvider struct {
	cfg    config.ProviderConfig
	client *resty.Client
}

// NewFacebookProvider 创建 Facebook 适配器
func NewFacebookProvider(cfg config.ProviderConfig) *FacebookProvider {
	return &FacebookProvider{
		cfg:    cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *FacebookProvider) Name() string {
	return model.ProviderFacebook
}

func (p *FacebookProvider) GetAuthURL(state string) string {
	scopes := "pages_manage_posts,pages_read_engagement,pages_show_list"
	return fmt.Sprintf(
		"https://www.facebook.com/v19.0/dialog/oauth?client_id=%s&redirect_uri=%s&state=%s&scope=%s",
		p.cfg.AppID, url.QueryEscape(p.cfg.RedirectURI), state, url.QueryEscape(scopes),
	)
}

type fbTokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (p *FacebookProvider) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	// 1. 授权码换短效 token
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

	// 2. 短效换长效（约 60 天），Facebook 不提供 refresh_token
	var longResp fbTokenResp
	resp, err = p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         p.cfg.AppID,
			"client_secret":     p.cfg.AppSecret,
			"fb_exchange_token": tokenResp.AccessToken,
		}).
		SetResult(&longResp).
		Get(fbGraphBase + "/oauth/access_token")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	expiresIn := longResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 3600
	}

	return &TokenSet{
		AccessToken: longResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// RefreshToken Facebook 长效 token 不可刷新，过期只能重新授权
func (p *FacebookProvider) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	return nil, &Error{
		Provider: p.Name(),
		Kind:     model.ErrorKindIntegration,
		Message:  "Facebook 令牌不支持刷新，请重新授权",
	}
}

func (p *FacebookProvider) ListPages(ctx context.Context, accessToken string) ([]Page, error) {
	type pagesResp struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Category    string `json:"category"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}

	var res pagesResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		SetResult(&res).
		Get(fbGraphBase + "/me/accounts")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	pages := make([]Page, 0, len(res.Data))
	for _, d := range res.Data {
		pages = append(pages, Page{
			ID:          d.ID,
			Name:        d.Name,
			Category:    d.Category,
			AccessToken: d.AccessToken,
		})
	}
	return pages, nil
}

func (p *FacebookProvider) Publish(ctx context.Context, req PublishRequest) (string, error) {
	type publishResp struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}

	var res publishResp
	var resp *resty.Response
	var err error

	if len(req.MediaURLs) == 1 {
		// 单图走 /photos，文案挂在 caption 上
		resp, err = p.client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"url":          req.MediaURLs[0],
				"caption":      req.Caption,
				"access_token": req.AccessToken,
			}).
			SetResult(&res).
			Post(fmt.Sprintf("%s/%s/photos", fbGraphBase, req.PageID))
	} else if len(req.MediaURLs) > 1 {
		// 多图先逐张不发布上传，再聚合成一条 feed
		var mediaIDs []string
		for _, mediaURL := range req.MediaURLs {
			var photoRes publishResp
			r, uploadErr := p.client.R().
				SetContext(ctx).
				SetFormData(map[string]string{
					"url":          mediaURL,
					"published":    "false",
					"access_token": req.AccessToken,
				}).
				SetResult(&photoRes).
				Post(fmt.Sprintf("%s/%s/photos", fbGraphBase, req.PageID))
			if uploadErr != nil {
				return "", newNetworkError(p.Name(), uploadErr)
			}
			if r.StatusCode() != 200 {
				return "", newHTTPError(p.Name(), r.StatusCode(), r.String())
			}
			mediaIDs = append(mediaIDs, photoRes.ID)
		}

		formData := map[string]string{
			"message":      req.Caption,
			"access_token": req.AccessToken,
		}
		for i, id := range mediaIDs {
			formData[fmt.Sprintf("attached_media[%d]", i)] = fmt.Sprintf(`{"media_fbid":"%s"}`, id)
		}
		resp, err = p.client.R().
			SetContext(ctx).
			SetFormData(formData).
			SetResult(&res).
			Post(fmt.Sprintf("%s/%s/feed", fbGraphBase, req.PageID))
	} else {
		// 纯文字帖
		resp, err = p.client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"message":      req.Caption,
				"access_token": req.AccessToken,
			}).
			SetResult(&res).
			Post(fmt.Sprintf("%s/%s/feed", fbGraphBase, req.PageID))
	}

	if err != nil {
		return "", newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return "", newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	externalID := res.PostID
	if externalID == "" {
		externalID = res.ID
	}
	if strings.TrimSpace(externalID) == "" {
		return "", &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindTransient,
			Message:  "响应中缺少帖子 ID",
		}
	}
	return externalID, nil
}
