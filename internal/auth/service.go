// Package auth はDiscord OAuth認証フローとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/psg-community/psgweb/internal/model"
	"github.com/psg-community/psgweb/internal/repository"
)

// OAuthResult はOAuthコード交換の結果を表す。
// トークンはIdentity Upsertへの入力にのみ使い、セッションには載せない。
type OAuthResult struct {
	Profile      *model.Profile
	AccessToken  string
	RefreshToken string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthResult, error)
}

// MemberResolver はギルドメンバー解決のインターフェース。discord.Clientが実装する。
type MemberResolver interface {
	GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error)
}

// IdentityUpserter はユーザーアイデンティティ照合のインターフェース。
// user.Serviceが実装する。
type IdentityUpserter interface {
	Upsert(ctx context.Context, profile *model.Profile, accessToken, refreshToken, nickname string) (*model.SessionIdentity, error)
	Identity(ctx context.Context, discordID string) (*model.SessionIdentity, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	GuildID       string
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	members     MemberResolver
	users       IdentityUpserter
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	members MemberResolver,
	users IdentityUpserter,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		members:     members,
		users:       users,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// コード交換 → ギルドメンバー照会（ニックネーム解決）→ アイデンティティの
// アップサート → セッション作成の順。アップサート失敗はそのまま伝播し、
// 呼び出し元はセッションを発行せずログインを拒否する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	result, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// ニックネーム解決: ギルドメンバーでない／照会に失敗した場合はユーザー名で代替
	nickname := result.Profile.Username
	member, err := s.members.GetGuildMember(ctx, s.config.GuildID, result.Profile.ID)
	if err != nil {
		slog.Warn("guild member lookup failed, falling back to username",
			slog.String("discord_id", result.Profile.ID),
			slog.String("error", err.Error()),
		)
	} else if member.Nick != nil && *member.Nick != "" {
		nickname = *member.Nick
	}

	identity, err := s.users.Upsert(ctx, result.Profile, result.AccessToken, result.RefreshToken, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile user identity: %w", err)
	}

	session, err := s.createSession(ctx, identity.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentIdentity はセッションから現在のユーザーアイデンティティを取得する。
// 返り値はトークンを含まない。
func (s *Service) GetCurrentIdentity(ctx context.Context, sessionID string) (*model.SessionIdentity, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	identity, err := s.users.Identity(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("user not found")
	}

	return identity, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
