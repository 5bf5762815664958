package handlers

import (
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/avdeev/teleblast/internal/config"
)

func TestCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare command", "/lists", ""},
		{"command with arg", "/create_list VIP", "VIP"},
		{"command with bot suffix", "/create_list@teleblast_bot VIP клиенты", "VIP клиенты"},
		{"extra whitespace", "/resend   7 ", "7"},
		{"not a command", "  привет  ", "привет"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := commandArgs(tt.text); got != tt.want {
				t.Errorf("commandArgs(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitNameAndTime(t *testing.T) {
	t.Parallel()

	h := sendHandler{deps: HandlerDeps{
		Config: &config.Config{
			Telegram: config.TelegramConfig{Timezone: "Europe/Moscow"},
		},
	}}

	t.Run("name with trailing time", func(t *testing.T) {
		t.Parallel()
		name, at := h.splitNameAndTime("VIP клиенты 31.12.2026 18:00")
		if name != "VIP клиенты" {
			t.Errorf("name = %q, want %q", name, "VIP клиенты")
		}
		want := time.Date(2026, 12, 31, 18, 0, 0, 0, h.deps.Config.Location())
		if !at.Equal(want) {
			t.Errorf("time = %v, want %v", at, want)
		}
	})

	t.Run("name only defaults to now", func(t *testing.T) {
		t.Parallel()
		before := time.Now()
		name, at := h.splitNameAndTime("VIP клиенты")
		if name != "VIP клиенты" {
			t.Errorf("name = %q, want %q", name, "VIP клиенты")
		}
		if at.Before(before) || at.After(time.Now().Add(time.Second)) {
			t.Errorf("time = %v, expected roughly now", at)
		}
	})

	t.Run("malformed time stays part of the name", func(t *testing.T) {
		t.Parallel()
		name, _ := h.splitNameAndTime("VIP 99.99.9999 99:99")
		if name != "VIP 99.99.9999 99:99" {
			t.Errorf("name = %q, malformed time must not be stripped", name)
		}
	})
}

func TestClassifyMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		msg         *models.Message
		wantType    string
		wantContent string
	}{
		{
			name:        "plain text",
			msg:         &models.Message{Text: "Привет"},
			wantType:    "text",
			wantContent: "Привет",
		},
		{
			name:        "photo with caption",
			msg:         &models.Message{Photo: []models.PhotoSize{{FileID: "x"}}, Caption: "Фото"},
			wantType:    "photo",
			wantContent: "Фото",
		},
		{
			name:     "video",
			msg:      &models.Message{Video: &models.Video{FileID: "x"}},
			wantType: "video",
		},
		{
			name:     "document",
			msg:      &models.Message{Document: &models.Document{FileID: "x"}},
			wantType: "document",
		},
		{
			name:     "anything else",
			msg:      &models.Message{},
			wantType: "media",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			contentType, content := classifyMessage(tt.msg)
			if contentType != tt.wantType {
				t.Errorf("content type = %q, want %q", contentType, tt.wantType)
			}
			if content != tt.wantContent {
				t.Errorf("content = %q, want %q", content, tt.wantContent)
			}
		})
	}
}
