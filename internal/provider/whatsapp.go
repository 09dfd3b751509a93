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

// WhatsAppProvider WhatsApp Business 状态发布适配器
// 帖子投递为 Status 广播，PageID 对应 WABA phone number ID
type WhatsAppProvider struct {
	cfg    config.ProviderConfig
	client *resty.Client
}

// NewWhatsAppProvider 创建 WhatsApp 适配器
func NewWhatsAppProvider(cfg config.ProviderConfig) *WhatsAppProvider {
	return &WhatsAppProvider{
		cfg:    cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *WhatsAppProvider) Name() string {
	return model.ProviderWhatsApp
}

func (p *WhatsAppProvider) GetAuthURL(state string) string {
	scopes := "whatsapp_business_management,whatsapp_business_messaging"
	return fmt.Sprintf(
		"https://www.facebook.com/v19.0/dialog/oauth?client_id=%s&redirect_uri=%s&state=%s&scope=%s",
		p.cfg.AppID, url.QueryEscape(p.cfg.RedirectURI), state, url.QueryEscape(scopes),
	)
}

type waTokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (p *WhatsAppProvider) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	var tokenResp waTokenResp
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
		expiresIn = 24 * 3600
	}

	return &TokenSet{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// RefreshToken WhatsApp 携带刷新令牌，可静默续期
func (p *WhatsAppProvider) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	var tokenResp waTokenResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     p.cfg.AppID,
			"client_secret": p.cfg.AppSecret,
			"refresh_token": refreshToken,
		}).
		SetResult(&tokenResp).
		Post(fbGraphBase + "/oauth/access_token")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 24 * 3600
	}

	// 平台未轮换刷新令牌时沿用旧值
	newRefresh := tokenResp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return &TokenSet{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// ListPages 列出商家 WABA 下的号码
func (p *WhatsAppProvider) ListPages(ctx context.Context, accessToken string) ([]Page, error) {
	type phoneResp struct {
		Data []struct {
			ID           string `json:"id"`
			VerifiedName string `json:"verified_name"`
			DisplayPhone string `json:"display_phone_number"`
		} `json:"data"`
	}

	var res phoneResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		SetResult(&res).
		Get(fbGraphBase + "/me/phone_numbers")
	if err != nil {
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	pages := make([]Page, 0, len(res.Data))
	for _, d := range res.Data {
		pages = append(pages, Page{
			ID:   d.ID,
			Name: fmt.Sprintf("%s (%s)", d.VerifiedName, d.DisplayPhone),
		})
	}
	return pages, nil
}

func (p *WhatsAppProvider) Publish(ctx context.Context, req PublishRequest) (string, error) {
	type messageResp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}

	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "status",
	}
	if len(req.MediaURLs) > 0 {
		body["type"] = "image"
		body["image"] = map[string]string{
			"link":    req.MediaURLs[0],
			"caption": req.Caption,
		}
	} else {
		body["type"] = "text"
		body["text"] = map[string]string{"body": req.Caption}
	}

	var res messageResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+req.AccessToken).
		SetBody(body).
		SetResult(&res).
		Post(fmt.Sprintf("%s/%s/messages", fbGraphBase, req.PageID))
	if err != nil {
		return "", newNetworkError(p.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return "", newHTTPError(p.Name(), resp.StatusCode(), resp.String())
	}

	if len(res.Messages) == 0 {
		return "", &Error{
			Provider: p.Name(),
			Kind:     model.ErrorKindTransient,
			Message:  "响应中缺少消息 ID",
		}
	}
	return res.Messages[0].ID, nil
}
