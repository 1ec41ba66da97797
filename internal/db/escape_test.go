package db

import "testing"

func TestEscapeTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"org-1", `org\-1`},
		{`a\b|c`, `a\\b\|c`},
		{"INV 2024.1", `INV\ 2024\.1`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := EscapeTag(tt.in); got != tt.want {
			t.Errorf("EscapeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
