package funcs

import (
	"testing"
	"time"
)

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    int
		wantErr bool
	}{
		{"nil uses default", nil, 60, false},
		{"empty string uses default", "", 60, false},
		{"json number", float64(45), 45, false},
		{"bare number string", "90", 90, false},
		{"minute suffix", "90m", 90, false},
		{"whole hours", "2h", 120, false},
		{"hours and minutes", "1h30", 90, false},
		{"uppercase hours", "2H", 120, false},
		{"zero", float64(0), 0, true},
		{"negative string", "-30", 0, true},
		{"garbage", "soonish", 0, true},
		{"wrong type", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDuration(tt.raw, 60)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d minutes, got %d", tt.want, got)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 20 {
		t.Errorf("unexpected date: %v", d)
	}

	for _, bad := range []string{"20-03-2024", "2024/03/20", "March 20", "2024-13-40", ""} {
		if _, err := parseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hour != 9 || minute != 30 {
		t.Errorf("expected 09:30, got %02d:%02d", hour, minute)
	}

	if _, _, err := parseClock("23:59"); err != nil {
		t.Errorf("23:59 should parse: %v", err)
	}
	for _, bad := range []string{"24:00", "9:75", "half past nine", "0930", ""} {
		if _, _, err := parseClock(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
