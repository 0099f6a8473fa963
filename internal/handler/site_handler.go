package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/psg-community/psgweb/internal/model"
)

// MerchListerInterface は物販ハンドラーが必要とするリポジトリインターフェース。
type MerchListerInterface interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// Pinger はヘルスチェックで疎通確認する依存のインターフェース。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SiteHandler はイベント・物販・ヘルスチェックのHTTPハンドラー。
type SiteHandler struct {
	snapshotPath string
	merch        MerchListerInterface
	db           Pinger
}

// NewSiteHandler はSiteHandlerを生成する。
func NewSiteHandler(snapshotPath string, merch MerchListerInterface, db Pinger) *SiteHandler {
	return &SiteHandler{
		snapshotPath: snapshotPath,
		merch:        merch,
		db:           db,
	}
}

// EventsData はスナップショットファイルをそのまま返す。
// ハンドラー側では整形や再シリアライズを行わない。スナップショットは
// 同期パイプラインがアトミックに書き換えるため、読み出しは常に完全な
// JSONのどちらかのバージョンになる。
// GET /events-data
func (h *SiteHandler) EventsData(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.snapshotPath)
	if err != nil {
		slog.Error("failed to read events snapshot",
			slog.String("path", h.snapshotPath),
			slog.String("error", err.Error()),
		)
		http.Error(w, "events data unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// MerchData は物販商品の一覧をJSONで返す。
// GET /merch-data
func (h *SiteHandler) MerchData(w http.ResponseWriter, r *http.Request) {
	products, err := h.merch.ListProducts(r.Context())
	if err != nil {
		slog.Error("failed to list merch products", slog.String("error", err.Error()))
		http.Error(w, "merch data unavailable", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(products)
}

// Health はDBへの疎通を確認してヘルスステータスを返す。
// GET /health
func (h *SiteHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
