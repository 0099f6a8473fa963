package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/psg-community/psgweb/internal/model"
)

// --- モック定義 ---

type mockEnrichAPI struct {
	getChannelFn     func(ctx context.Context, channelID string) (*model.Channel, error)
	getGuildMemberFn func(ctx context.Context, guildID, userID string) (*model.GuildMember, error)

	channelCalls int
	memberCalls  int
}

func (m *mockEnrichAPI) GetChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	m.channelCalls++
	if m.getChannelFn != nil {
		return m.getChannelFn(ctx, channelID)
	}
	return &model.Channel{ID: channelID, Name: "voice-lounge"}, nil
}

func (m *mockEnrichAPI) GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error) {
	m.memberCalls++
	if m.getGuildMemberFn != nil {
		return m.getGuildMemberFn(ctx, guildID, userID)
	}
	return &model.GuildMember{}, nil
}

func (m *mockEnrichAPI) AvatarURL(userID, hash string) string {
	return fmt.Sprintf("https://cdn.example.com/avatars/%s/%s.png", userID, hash)
}

func (m *mockEnrichAPI) EventCoverURL(eventID, hash string) string {
	return fmt.Sprintf("https://cdn.example.com/guild-events/%s/%s.png", eventID, hash)
}

func strPtr(s string) *string { return &s }

func TestEnrichAll(t *testing.T) {
	start := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)

	t.Run("派生フィールドが付与される", func(t *testing.T) {
		api := &mockEnrichAPI{
			getGuildMemberFn: func(ctx context.Context, guildID, userID string) (*model.GuildMember, error) {
				return &model.GuildMember{Nick: strPtr("アリス")}, nil
			},
		}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:                 "e1",
			Name:               "飲み会",
			ScheduledStartTime: start,
			ChannelID:          "c1",
			Image:              "cover123",
			Creator:            &model.EventCreator{ID: "111", Username: "alice", Avatar: "abc"},
		}}

		results := enricher.EnrichAll(context.Background(), events)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		got := results[0]
		if got.Err != nil {
			t.Fatalf("unexpected error: %v", got.Err)
		}
		if got.Event.ChannelName != "voice-lounge" {
			t.Errorf("unexpected channel name: %s", got.Event.ChannelName)
		}
		if got.Event.ImageURL != "https://cdn.example.com/guild-events/e1/cover123.png" {
			t.Errorf("unexpected image URL: %s", got.Event.ImageURL)
		}
		if got.Event.CreatorAvatarURL != "https://cdn.example.com/avatars/111/abc.png" {
			t.Errorf("unexpected creator avatar URL: %s", got.Event.CreatorAvatarURL)
		}
		if got.Event.CreatorNickname != "アリス" {
			t.Errorf("unexpected creator nickname: %s", got.Event.CreatorNickname)
		}
	})

	t.Run("生フィールドは変更されない", func(t *testing.T) {
		api := &mockEnrichAPI{}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:                 "e1",
			Name:               "飲み会",
			Description:        "今月の定例",
			ScheduledStartTime: start,
			ChannelID:          "c1",
		}}

		results := enricher.EnrichAll(context.Background(), events)
		got := results[0].Event
		if got.ID != "e1" || got.Name != "飲み会" || got.Description != "今月の定例" || got.ChannelID != "c1" {
			t.Errorf("raw fields were modified: %+v", got)
		}
		// 入力スライス自体も変更されないこと
		if events[0].ChannelName != "" {
			t.Errorf("input slice was mutated: %+v", events[0])
		}
	})

	t.Run("ニックネーム未設定の場合はユーザー名にフォールバック", func(t *testing.T) {
		api := &mockEnrichAPI{
			getGuildMemberFn: func(ctx context.Context, guildID, userID string) (*model.GuildMember, error) {
				return &model.GuildMember{Nick: nil}, nil
			},
		}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:      "e1",
			Creator: &model.EventCreator{ID: "111", Username: "alice"},
		}}

		results := enricher.EnrichAll(context.Background(), events)
		if results[0].Event.CreatorNickname != "alice" {
			t.Errorf("expected username fallback, got %s", results[0].Event.CreatorNickname)
		}
	})

	t.Run("アバター未設定の作成者にはアバターURLを付与しない", func(t *testing.T) {
		api := &mockEnrichAPI{}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:      "e1",
			Creator: &model.EventCreator{ID: "111", Username: "alice"},
		}}

		results := enricher.EnrichAll(context.Background(), events)
		if results[0].Event.CreatorAvatarURL != "" {
			t.Errorf("expected empty avatar URL, got %s", results[0].Event.CreatorAvatarURL)
		}
	})

	t.Run("チャンネル取得失敗時は生イベントのまま返す", func(t *testing.T) {
		api := &mockEnrichAPI{
			getChannelFn: func(ctx context.Context, channelID string) (*model.Channel, error) {
				return nil, errors.New("api down")
			},
		}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:        "e1",
			Name:      "飲み会",
			ChannelID: "c1",
			Image:     "cover123",
		}}

		results := enricher.EnrichAll(context.Background(), events)
		got := results[0]
		if got.Err == nil {
			t.Fatal("expected error")
		}

		var enrichErr *model.EnrichmentError
		if !errors.As(got.Err, &enrichErr) {
			t.Fatalf("expected EnrichmentError, got %T", got.Err)
		}
		if enrichErr.Field != "channel_name" {
			t.Errorf("unexpected field: %s", enrichErr.Field)
		}
		// 部分的な派生フィールドを残さないこと（ImageURLは解決済みでも破棄される）
		if got.Event.ImageURL != "" || got.Event.ChannelName != "" {
			t.Errorf("expected raw event, got %+v", got.Event)
		}
	})

	t.Run("1イベントの失敗は他のイベントに影響しない", func(t *testing.T) {
		api := &mockEnrichAPI{
			getChannelFn: func(ctx context.Context, channelID string) (*model.Channel, error) {
				if channelID == "broken" {
					return nil, errors.New("api down")
				}
				return &model.Channel{ID: channelID, Name: "voice-lounge"}, nil
			},
		}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{
			{ID: "e1", ChannelID: "broken"},
			{ID: "e2", ChannelID: "c2"},
		}

		results := enricher.EnrichAll(context.Background(), events)
		if results[0].Err == nil {
			t.Error("expected error for first event")
		}
		if results[1].Err != nil {
			t.Errorf("unexpected error for second event: %v", results[1].Err)
		}
		if results[1].Event.ChannelName != "voice-lounge" {
			t.Errorf("unexpected channel name: %s", results[1].Event.ChannelName)
		}
	})

	t.Run("同一チャンネルのルックアップはメモ化される", func(t *testing.T) {
		api := &mockEnrichAPI{}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{
			{ID: "e1", ChannelID: "c1"},
			{ID: "e2", ChannelID: "c1"},
			{ID: "e3", ChannelID: "c2"},
		}

		enricher.EnrichAll(context.Background(), events)
		if api.channelCalls != 2 {
			t.Errorf("expected 2 channel lookups, got %d", api.channelCalls)
		}
	})

	t.Run("繰り返しルールがある場合は次回開催時刻が付与される", func(t *testing.T) {
		api := &mockEnrichAPI{}
		enricher := NewEnricher(api, "guild1", slog.Default())

		events := []model.ScheduledEvent{{
			ID:                 "e1",
			ScheduledStartTime: start,
			RecurrenceRule:     &model.RecurrenceRule{Frequency: 2, Interval: 1},
		}}

		results := enricher.EnrichAll(context.Background(), events)
		if results[0].Err != nil {
			t.Fatalf("unexpected error: %v", results[0].Err)
		}
		if results[0].Event.NextOccurrence == nil {
			t.Fatal("expected NextOccurrence to be set")
		}
		if !results[0].Event.NextOccurrence.After(time.Now().Add(-time.Minute)) {
			t.Errorf("NextOccurrence should not be in the past: %v", results[0].Event.NextOccurrence)
		}
	})
}
