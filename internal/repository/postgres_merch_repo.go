package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/psg-community/psgweb/internal/model"
)

// PostgresMerchRepo はPostgreSQLを使用したマーチャンダイズリポジトリ。
// 単一の読み取りクエリのみを発行する。
type PostgresMerchRepo struct {
	db *sql.DB
}

// NewPostgresMerchRepo はPostgresMerchRepoを生成する。
func NewPostgresMerchRepo(db *sql.DB) *PostgresMerchRepo {
	return &PostgresMerchRepo{db: db}
}

// ListProducts は全商品を表示順に返す。
func (r *PostgresMerchRepo) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price, description
		 FROM merch_products
		 ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list merch products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan merch product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate merch products: %w", err)
	}

	return products, nil
}

// compile-time interface check
var _ MerchRepository = (*PostgresMerchRepo)(nil)
