package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/psg-community/psgweb/internal/model"
)

// newTestClient はhttptestサーバーを向くClientを生成するテストヘルパー。
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), "test-token", 100, nil, slog.Default())
	client.baseURL = server.URL
	return client, server
}

func TestGetUser(t *testing.T) {
	t.Run("プロフィールを取得できる", func(t *testing.T) {
		var gotAuth string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if r.URL.Path != "/users/111" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"111","username":"alice","discriminator":"0","avatar":"abc123"}`))
		}))

		profile, err := client.GetUser(context.Background(), "111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.ID != "111" || profile.Username != "alice" || profile.Avatar != "abc123" {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if gotAuth != "Bot test-token" {
			t.Errorf("unexpected Authorization header: %s", gotAuth)
		}
	})

	t.Run("非200ステータスはRemoteCallErrorになる", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.GetUser(context.Background(), "999")
		if err == nil {
			t.Fatal("expected error")
		}

		var remoteErr *model.RemoteCallError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("expected RemoteCallError, got %T", err)
		}
		if remoteErr.Status != http.StatusNotFound {
			t.Errorf("unexpected status: %d", remoteErr.Status)
		}
	})
}

func TestGetGuildScheduledEvents(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guilds/123/scheduled-events" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"e1","guild_id":"123","name":"飲み会","scheduled_start_time":"2026-09-01T19:00:00Z","channel_id":"c1"},
			{"id":"e2","guild_id":"123","name":"ゲーム大会","scheduled_start_time":"2026-09-05T20:00:00Z"}
		]`))
	}))

	events, err := client.GetGuildScheduledEvents(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "e1" || events[0].ChannelID != "c1" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
}

func TestGetGuildMember(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guilds/123/members/111" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nick":"アリス","user":{"id":"111","username":"alice"}}`))
	}))

	member, err := client.GetGuildMember(context.Background(), "123", "111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.Nick == nil || *member.Nick != "アリス" {
		t.Errorf("unexpected nick: %v", member.Nick)
	}
}

func TestFractionalRPS(t *testing.T) {
	// rpsが1未満の小数でもバーストが最低1確保され、最初の呼び出しが即時に通る
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"111","username":"alice","discriminator":"0","avatar":"abc123"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), "test-token", 0.5, nil, slog.Default())
	client.baseURL = server.URL

	profile, err := client.GetUser(context.Background(), "111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "111" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

type mockMetrics struct {
	statuses []int
}

func (m *mockMetrics) RecordDiscordRequest(status int) {
	m.statuses = append(m.statuses, status)
}

func TestClientMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	metrics := &mockMetrics{}
	client := NewClient(server.Client(), "token", 100, metrics, slog.Default())
	client.baseURL = server.URL

	if _, err := client.GetUser(context.Background(), "111"); err == nil {
		t.Fatal("expected error")
	}
	if len(metrics.statuses) != 1 || metrics.statuses[0] != http.StatusTooManyRequests {
		t.Errorf("unexpected recorded statuses: %v", metrics.statuses)
	}
}

func TestAvatarURL(t *testing.T) {
	client := NewClient(http.DefaultClient, "token", 10, nil, slog.Default())

	t.Run("静止画はpng", func(t *testing.T) {
		got := client.AvatarURL("111", "abc123")
		want := "https://cdn.discordapp.com/avatars/111/abc123.png"
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("アニメーションはgif", func(t *testing.T) {
		got := client.AvatarURL("111", "a_abc123")
		want := "https://cdn.discordapp.com/avatars/111/a_abc123.gif"
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})
}

func TestEventCoverURL(t *testing.T) {
	client := NewClient(http.DefaultClient, "token", 10, nil, slog.Default())

	got := client.EventCoverURL("e1", "cover123")
	want := "https://cdn.discordapp.com/guild-events/e1/cover123.png"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
