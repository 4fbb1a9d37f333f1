package domain

import "testing"

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-01-15", "2026-01-15", true},
		{"2026-01-15T10:30:00", "2026-01-15", true},
		{"2026-01-15 10:30:00", "2026-01-15", true},
		{"15/01/2026", "2026-01-15", true},
		{"20260115", "2026-01-15", true},
		{"  2026-01-15  ", "2026-01-15", true},
		{"", "", false},
		{"not-a-date", "", false},
		{"2026-13-45", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}
