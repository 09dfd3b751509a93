package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/provider"
	"bizboost_v1_202608/internal/repository"
	"bizboost_v1_202608/pkg/crypto"
	"bizboost_v1_202608/pkg/utils"
)

// ==================== 输入输出 ====================

var (
	ErrIntegrationQuota   = errors.New("平台连接数已达上限，请升级订阅")
	ErrNoRefreshToken     = errors.New("该平台令牌不支持刷新，请重新授权")
	ErrSelectionExpired   = errors.New("页面选择已超时，请重新发起授权")
	ErrPageNotInCandidate = errors.New("所选页面不在候选列表中")
)

// candidateSession 回调与页面选择之间的中间态
type candidateSession struct {
	BusinessID int64
	Provider   string
	Token      *provider.TokenSet
	Pages      []provider.Page
}

// CallbackResult 回调处理结果
// Facebook/Instagram 多页面时需要用户二次选择
type CallbackResult struct {
	Integration        *model.Integration
	NeedsPageSelection bool
	SessionKey         string
	Pages              []provider.Page
}

// ==================== 服务 ====================

// IntegrationService 平台连接服务（OAuth 流程 + 令牌管理）
type IntegrationService struct {
	Repo      repository.IntegrationRepository
	Registry  ProviderRegistry
	Cipher    *crypto.TokenCipher
	StateKey  string
}

// NewIntegrationService 工厂方法
func NewIntegrationService(
	repo repository.IntegrationRepository,
	registry ProviderRegistry,
	cipher *crypto.TokenCipher,
	stateKey string,
) *IntegrationService {
	return &IntegrationService{
		Repo:     repo,
		Registry: registry,
		Cipher:   cipher,
		StateKey: stateKey,
	}
}

// BeginConnect 发起授权：签发 state 并返回平台授权页 URL
func (s *IntegrationService) BeginConnect(ctx context.Context, userID, businessID int64, providerName string, ent *Entitlements) (string, error) {
	if !model.IsValidProvider(providerName) {
		return "", fmt.Errorf("不支持的平台: %s", providerName)
	}

	if ent != nil {
		used, err := s.Repo.CountActiveByBusiness(ctx, businessID)
		if err != nil {
			return "", err
		}
		// 重连已有平台不占新额度
		if _, err := s.Repo.GetByBusinessAndProvider(ctx, businessID, providerName); err != nil {
			if ok, _ := ent.CheckIntegrationQuota(used); !ok {
				return "", ErrIntegrationQuota
			}
		}
	}

	adapter, err := s.Registry.Get(providerName)
	if err != nil {
		return "", err
	}

	state, err := utils.SignState(s.StateKey, userID, businessID, providerName)
	if err != nil {
		return "", err
	}

	return adapter.GetAuthURL(state), nil
}

// HandleCallback 处理平台回调
// state 校验失败直接拒绝；换令牌后列页面：单页面直接激活，
// 多页面把候选和令牌缓存起来等待用户选择
func (s *IntegrationService) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	claims, err := utils.ParseState(s.StateKey, state)
	if err != nil {
		return nil, err
	}

	adapter, err := s.Registry.Get(claims.Provider)
	if err != nil {
		return nil, err
	}

	token, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	pages, err := adapter.ListPages(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s 账号下没有可用的页面，请先在平台创建", claims.Provider)
	}

	if len(pages) == 1 {
		integration, err := s.activate(ctx, claims.BusinessID, claims.Provider, pages[0], token)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Integration: integration}, nil
	}

	// 多页面：中间态进缓存，key 复用 state（已验签，唯一）
	utils.SetCache(state, &candidateSession{
		BusinessID: claims.BusinessID,
		Provider:   claims.Provider,
		Token:      token,
		Pages:      pages,
	})

	return &CallbackResult{
		NeedsPageSelection: true,
		SessionKey:         state,
		Pages:              pages,
	}, nil
}

// SelectPage 用户从候选列表中选定页面后激活集成
func (s *IntegrationService) SelectPage(ctx context.Context, businessID int64, sessionKey, pageID string) (*model.Integration, error) {
	cached, ok := utils.GetCache(sessionKey)
	if !ok {
		return nil, ErrSelectionExpired
	}
	session, ok := cached.(*candidateSession)
	if !ok || session.BusinessID != businessID {
		return nil, ErrSelectionExpired
	}

	for _, page := range session.Pages {
		if page.ID == pageID {
			integration, err := s.activate(ctx, businessID, session.Provider, page, session.Token)
			if err != nil {
				return nil, err
			}
			// 用完即焚
			utils.DeleteCache(sessionKey)
			return integration, nil
		}
	}
	return nil, ErrPageNotInCandidate
}

// activate 落库激活：令牌加密后 upsert 到 business+provider 唯一行
func (s *IntegrationService) activate(ctx context.Context, businessID int64, providerName string, page provider.Page, token *provider.TokenSet) (*model.Integration, error) {
	// Facebook 发帖用页面级 token
	accessToken := token.AccessToken
	if page.AccessToken != "" {
		accessToken = page.AccessToken
	}

	encAccess, err := s.Cipher.Encrypt(accessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := s.Cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, err
	}

	existing, err := s.Repo.GetByBusinessAndProvider(ctx, businessID, providerName)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		integration := &model.Integration{
			BusinessID:     businessID,
			Provider:       providerName,
			ProviderPageID: page.ID,
			ProviderUserID: token.ProviderUserID,
			DisplayName:    page.Name,
			AccessToken:    encAccess,
			RefreshToken:   encRefresh,
			TokenExpiresAt: token.ExpiresAt,
			Status:         model.IntegrationStatusActive,
		}
		if err := s.Repo.Create(ctx, integration); err != nil {
			return nil, err
		}
		return integration, nil
	}

	existing.ProviderPageID = page.ID
	existing.ProviderUserID = token.ProviderUserID
	existing.DisplayName = page.Name
	existing.AccessToken = encAccess
	existing.RefreshToken = encRefresh
	existing.TokenExpiresAt = token.ExpiresAt
	existing.Status = model.IntegrationStatusActive
	if err := s.Repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Refresh 刷新令牌：换到新令牌组后三个字段一次性原子替换
func (s *IntegrationService) Refresh(ctx context.Context, integration *model.Integration) error {
	if !integration.HasRefreshToken() {
		return ErrNoRefreshToken
	}

	adapter, err := s.Registry.Get(integration.Provider)
	if err != nil {
		return err
	}

	refreshToken, err := s.Cipher.Decrypt(integration.RefreshToken)
	if err != nil {
		return err
	}

	token, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	encAccess, err := s.Cipher.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}
	encRefresh, err := s.Cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return err
	}

	if err := s.Repo.UpdateToken(ctx, integration.ID, encAccess, encRefresh, token.ExpiresAt); err != nil {
		return err
	}

	integration.AccessToken = encAccess
	integration.RefreshToken = encRefresh
	integration.TokenExpiresAt = token.ExpiresAt
	return nil
}

// RefreshByID 手动刷新入口
func (s *IntegrationService) RefreshByID(ctx context.Context, businessID int64, providerName string) (*model.Integration, error) {
	integration, err := s.Repo.GetByBusinessAndProvider(ctx, businessID, providerName)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, integration); err != nil {
		return nil, err
	}
	return integration, nil
}

// Disconnect 断开连接（软）：状态吊销 + 令牌清空
func (s *IntegrationService) Disconnect(ctx context.Context, businessID int64, providerName string) error {
	integration, err := s.Repo.GetByBusinessAndProvider(ctx, businessID, providerName)
	if err != nil {
		return err
	}
	return s.Repo.Revoke(ctx, integration.ID)
}

// Destroy 彻底删除集成记录
func (s *IntegrationService) Destroy(ctx context.Context, businessID int64, providerName string) error {
	integration, err := s.Repo.GetByBusinessAndProvider(ctx, businessID, providerName)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, integration.ID)
}

// ListForBusiness 商家的全部集成（带过期标记，不回传令牌）
func (s *IntegrationService) ListForBusiness(ctx context.Context, businessID int64) ([]model.Integration, error) {
	integrations, err := s.Repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	// 脱敏：密文也不出服务层
	now := time.Now()
	for i := range integrations {
		integrations[i].AccessToken = ""
		integrations[i].RefreshToken = ""
		if integrations[i].TokenExpired(now) && integrations[i].Status == model.IntegrationStatusActive {
			integrations[i].Meta = model.JSONMap{"reconnect_required": true}
		}
	}
	return integrations, nil
}
