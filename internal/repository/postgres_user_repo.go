package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/psg-community/psgweb/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByDiscordID は指定Discord IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByDiscordID(ctx context.Context, discordID string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT discord_id, username, discriminator, avatar,
		        access_token, refresh_token, nickname, created_at, updated_at
		 FROM users WHERE discord_id = $1`,
		discordID,
	).Scan(
		&user.DiscordID, &user.Username, &user.Discriminator, &user.Avatar,
		&user.AccessToken, &user.RefreshToken, &user.Nickname,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by discord ID: %w", err)
	}

	return user, nil
}

// Upsert はユーザーをdiscord_idをキーに冪等にUPSERTする。
// 同一discord_idへの同時認証が両方INSERT経路を選んでも、
// 主キー制約とON CONFLICTにより片方が更新に転化する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (discord_id, username, discriminator, avatar,
		                    access_token, refresh_token, nickname, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (discord_id) DO UPDATE SET
		   username = EXCLUDED.username,
		   discriminator = EXCLUDED.discriminator,
		   avatar = EXCLUDED.avatar,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   nickname = EXCLUDED.nickname,
		   updated_at = EXCLUDED.updated_at`,
		user.DiscordID, user.Username, user.Discriminator, user.Avatar,
		user.AccessToken, user.RefreshToken, user.Nickname,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
