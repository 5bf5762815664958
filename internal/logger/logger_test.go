package logger

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "short string unchanged",
			input:  "привет",
			maxLen: 50,
			want:   "привет",
		},
		{
			name:   "long ascii string truncated",
			input:  strings.Repeat("a", 60),
			maxLen: 50,
			want:   strings.Repeat("a", 50) + "...",
		},
		{
			name:   "cyrillic truncated on rune boundary",
			input:  strings.Repeat("ф", 60),
			maxLen: 50,
			want:   strings.Repeat("ф", 50) + "...",
		},
		{
			name:   "exact length unchanged",
			input:  strings.Repeat("ю", 50),
			maxLen: 50,
			want:   strings.Repeat("ю", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := truncateString(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateString produced invalid UTF-8: %q", got)
			}
		})
	}
}
