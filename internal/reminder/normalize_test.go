package reminder

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		raw   string
		tz    string
		shape Shape
		want  time.Time
	}{
		{"utc marker", "2025-06-01T10:00:00Z", "", ShapeFull, want},
		{"utc marker ignores hint", "2025-06-01T10:00:00Z", "Asia/Jakarta", ShapeFull, want},
		{"fraction", "2025-06-01T10:00:00.000Z", "", ShapeFull, want},
		{"offset", "2025-06-01T17:00:00+07:00", "", ShapeFull, want},
		{"offset without seconds", "2025-06-01T17:00+07:00", "", ShapeFull, want},
		{"space separator", "2025-06-01 10:00:00", "", ShapeFull, want},
		{"naive with hint", "2025-06-01T17:00:00", "Asia/Jakarta", ShapeFull, want},
		{"naive fraction with hint", "2025-06-01T17:00:00.5", "Asia/Jakarta", ShapeFull, want.Add(500 * time.Millisecond)},
		{"legacy", "2025-06-01T10:00", "", ShapeLegacy, want},
		{"legacy with space", "2025-06-01 10:00", "UTC", ShapeLegacy, want},
		{"legacy with hint", "2025-06-01T17:00", "Asia/Jakarta", ShapeLegacy, want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tt.raw, tt.tz)
			if err != nil {
				t.Fatalf("Normalize(%q, %q): %v", tt.raw, tt.tz, err)
			}
			if !got.Instant.Equal(tt.want) || got.Instant.Location() != time.UTC {
				t.Fatalf("instant = %v, want %v UTC", got.Instant, tt.want)
			}
			if got.Shape != tt.shape {
				t.Fatalf("shape = %v, want %v", got.Shape, tt.shape)
			}
			if got.ZoneFallback {
				t.Fatal("unexpected zone fallback")
			}
		})
	}
}

func TestNormalizeLegacyWithTorontoHint(t *testing.T) {
	t.Parallel()
	got, err := Normalize("2099-01-01T00:00", "America/Toronto")
	if err != nil {
		t.Fatal(err)
	}
	toronto, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2099, 1, 1, 0, 0, 0, 0, toronto).UTC()
	if !got.Instant.Equal(want) {
		t.Fatalf("instant = %v, want %v", got.Instant, want)
	}
	if want.Hour() != 5 {
		t.Fatalf("expected EST offset, got %v", want)
	}
}

func TestNormalizeShapeInvariance(t *testing.T) {
	t.Parallel()
	inputs := [][2]string{
		{"2099-01-01T00:00", "America/Toronto"},
		{"2099-01-01 00:00:00", "America/Toronto"},
		{"2099-01-01T00:00:00.000", "America/Toronto"},
		{"2099-01-01T00:00:00-05:00", ""},
		{"2099-01-01T05:00:00Z", "Europe/Paris"},
		{"2099-01-01T05:00", ""},
	}
	var first time.Time
	for i, in := range inputs {
		got, err := Normalize(in[0], in[1])
		if err != nil {
			t.Fatalf("Normalize(%q, %q): %v", in[0], in[1], err)
		}
		if i == 0 {
			first = got.Instant
			continue
		}
		if !got.Instant.Equal(first) {
			t.Fatalf("Normalize(%q, %q) = %v, want %v", in[0], in[1], got.Instant, first)
		}
	}
}

func TestNormalizeZoneFallback(t *testing.T) {
	t.Parallel()
	for _, tz := range []string{"Mars/Olympus", "Local", "not a zone"} {
		got, err := Normalize("2025-06-01T10:00", tz)
		if err != nil {
			t.Fatalf("tz %q: %v", tz, err)
		}
		if !got.ZoneFallback {
			t.Fatalf("tz %q: expected fallback", tz)
		}
		if want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC); !got.Instant.Equal(want) {
			t.Fatalf("tz %q: instant = %v, want %v", tz, got.Instant, want)
		}
	}

	// An explicit offset never needs the hint.
	got, err := Normalize("2025-06-01T10:00:00Z", "Mars/Olympus")
	if err != nil || got.ZoneFallback {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"",
		"   ",
		"tomorrow",
		"2025-06-01",
		"2025-13-01T10:00",
		"2025-06-01T25:00:00Z",
		"01/06/2025 10:00",
		"2025-06-01T10",
	} {
		if _, err := Normalize(raw, ""); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidTimeFormat", raw, err)
		}
	}
}

func TestValidZone(t *testing.T) {
	t.Parallel()
	if !ValidZone("") || !ValidZone("Asia/Jakarta") {
		t.Fatal("expected valid")
	}
	if ValidZone("Local") || ValidZone("Nowhere/Else") {
		t.Fatal("expected invalid")
	}
}
