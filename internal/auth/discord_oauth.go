package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/psg-community/psgweb/internal/model"
)

const (
	defaultDiscordAuthURL     = "https://discord.com/oauth2/authorize"
	defaultDiscordTokenURL    = "https://discord.com/api/oauth2/token"
	defaultDiscordUserInfoURL = "https://discord.com/api/v10/users/@me"
)

// DiscordOAuthConfig はDiscord OAuthプロバイダーの設定。
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
type DiscordOAuthProvider struct {
	config DiscordOAuthConfig
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(config DiscordOAuthConfig) *DiscordOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultDiscordAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultDiscordTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultDiscordUserInfoURL
	}
	return &DiscordOAuthProvider{config: config}
}

// GetLoginURL はDiscord OAuthの認証URLを生成する。
// スコープはidentifyのみ（プロフィール取得に必要な最小権限）。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"identify"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// discordTokenResponse はDiscordのトークンエンドポイントのレスポンス。
type discordTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// ExchangeCode は認可コードをトークンに交換し、ユーザープロフィールを取得する。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthResult, error) {
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	profile, err := p.fetchProfile(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	return &OAuthResult{
		Profile:      profile,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *DiscordOAuthProvider) exchangeToken(ctx context.Context, code string) (*discordTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp discordTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchProfile はアクセストークンで認証ユーザー自身のプロフィールを取得する。
func (p *DiscordOAuthProvider) fetchProfile(ctx context.Context, accessToken string) (*model.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile model.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("empty user ID in user info response")
	}

	return &profile, nil
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
