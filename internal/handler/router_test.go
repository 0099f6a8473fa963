package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/psg-community/psgweb/internal/middleware"
	"github.com/psg-community/psgweb/internal/model"
)

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// newTestRouter はモック依存でルーターを構築するテストヘルパー。
func newTestRouter(t *testing.T, snapshotPath, staticDir string, finder *mockSessionFinder) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerMinute: 600,
		Burst:             100,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:         slog.Default(),
		SessionFinder:  finder,
		RateLimiter:    rl,
		AuthService:    &mockAuthService{},
		AuthConfig:     testAuthConfig(),
		SnapshotPath:   snapshotPath,
		MerchLister:    &mockMerchLister{},
		DB:             &mockPinger{},
		StaticDir:      staticDir,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	})
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "events.json")
	if err := os.WriteFile(snapshotPath, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	staticDir := filepath.Join(dir, "public")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>PSG</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	router := newTestRouter(t, snapshotPath, staticDir, &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid" {
				return &model.Session{ID: id, UserID: "111"}, nil
			}
			return nil, nil
		},
	})

	t.Run("GET /events-data がスナップショットを返す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events-data", nil)
		req.RemoteAddr = "203.0.113.1:1000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", rec.Code)
		}
		if rec.Body.String() != "[]" {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("GET /merch-data が200を返す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/merch-data", nil)
		req.RemoteAddr = "203.0.113.1:1000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("GET /health が200を返す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("GET / が静的ファイルを返す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if rec.Body.String() != "<html>PSG</html>" {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("GET /auth/me はセッションなしで401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("全レスポンスにセキュリティヘッダーが付与される", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing security headers")
		}
	})
}
