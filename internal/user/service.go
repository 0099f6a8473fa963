// Package user はユーザーアイデンティティの照合（アップサート）を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/psg-community/psgweb/internal/model"
	"github.com/psg-community/psgweb/internal/repository"
)

// Metrics はログインのメトリクス記録インターフェース。
type Metrics interface {
	RecordLogin(newUser bool)
}

// Service は外部プロフィールとローカルユーザーストアの照合を行う。
type Service struct {
	repo    repository.UserRepository
	metrics Metrics
}

// NewService はServiceを生成する。
func NewService(repo repository.UserRepository, metrics Metrics) *Service {
	return &Service{repo: repo, metrics: metrics}
}

// Upsert は認証済みの外部プロフィールをローカルユーザーストアへ照合する。
// 同一discord_idのレコードがあれば可変フィールドを上書き更新し、なければ新規作成する。
// 同一入力での再実行はストアの観測可能な状態を変えない（冪等）。
// 返り値はトークンを含まない正規化済みアイデンティティで、セッションへの埋め込みに使う。
func (s *Service) Upsert(
	ctx context.Context,
	profile *model.Profile,
	accessToken, refreshToken, nickname string,
) (*model.SessionIdentity, error) {
	existing, err := s.repo.FindByDiscordID(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := time.Now()
	u := &model.User{
		DiscordID:     profile.ID,
		Username:      profile.Username,
		Discriminator: profile.Discriminator,
		Avatar:        profile.Avatar,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		Nickname:      nickname,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if existing == nil {
		slog.Info("new user created",
			slog.String("discord_id", profile.ID),
			slog.String("username", profile.Username),
		)
	} else {
		slog.Info("existing user updated",
			slog.String("discord_id", profile.ID),
		)
	}
	s.metrics.RecordLogin(existing == nil)

	return &model.SessionIdentity{
		DiscordID:     u.DiscordID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
		Nickname:      u.Nickname,
	}, nil
}

// Identity は保存済みユーザーからトークンを含まないアイデンティティを返す。
// 見つからない場合はnilを返す。
func (s *Service) Identity(ctx context.Context, discordID string) (*model.SessionIdentity, error) {
	u, err := s.repo.FindByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, nil
	}
	return &model.SessionIdentity{
		DiscordID:     u.DiscordID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
		Nickname:      u.Nickname,
	}, nil
}
