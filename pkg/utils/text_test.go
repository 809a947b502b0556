package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short ascii untouched", "Muraho neza", 80, "Muraho neza"},
		{"exact length untouched", "abcde", 5, "abcde"},
		{"ascii cut", "abcdef", 3, "abc…"},
		{"multibyte cut on rune boundary", "héllo wörld", 4, "héll…"},
		{"emoji not split", "🚌🚌🚌🚌", 2, "🚌🚌…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("TruncateRunes(%q, %d) produced invalid UTF-8", tt.in, tt.max)
			}
		})
	}
}
