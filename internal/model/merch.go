package model

// Product はマーチャンダイズ商品を表す。
// merch_productsテーブルは読み取り専用のデータソースで、
// フロントエンドのタイル表示が使うフィールドのみを持つ。
type Product struct {
	ID          string `json:"-"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}
