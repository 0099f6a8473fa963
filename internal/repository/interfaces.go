// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/psg-community/psgweb/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByDiscordID は指定Discord IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByDiscordID(ctx context.Context, discordID string) (*model.User, error)

	// Upsert はユーザーをdiscord_idをキーに冪等にUPSERTする。
	// 既存レコードがあれば可変フィールド（username, discriminator, avatar,
	// トークン, nickname）を上書き更新し、なければ新規作成する。
	// created_atは初回作成時の値を維持する。
	Upsert(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// MerchRepository はマーチャンダイズ商品の読み取りインターフェース。
// merch_productsテーブルはこのシステムからは読み取り専用。
type MerchRepository interface {
	// ListProducts は全商品を表示順に返す。
	ListProducts(ctx context.Context) ([]model.Product, error)
}
