package usecase

import (
	"testing"
	"time"
)

func TestExtractRecordingDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		filename string
		want     string
	}{
		{"recorder stamp", "REC_20250115_093000.m4a", "2025-01-15"},
		{"already bracketed", "[2025-03-20] Weekly Sync.m4a", "2025-03-20"},
		{"bare iso date", "standup 2025-02-10 notes.mp3", "2025-02-10"},
		{"compact date", "meeting_20250405.wav", "2025-04-05"},
		{"no date falls back", "untitled recording.m4a", "2025-06-01"},
		{"stamp beats iso", "REC_20250115_093000 copy 2024-01-01.m4a", "2025-01-15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractRecordingDate(tc.filename, now); got != tc.want {
				t.Errorf("ExtractRecordingDate(%q) = %q, want %q", tc.filename, got, tc.want)
			}
		})
	}
}

func TestRenamedFilename(t *testing.T) {
	got := RenamedFilename("REC_20250115_093000.m4a", "2025-01-15", "Ship Plan")
	if got != "[2025-01-15] Ship Plan.m4a" {
		t.Errorf("got %q", got)
	}

	// Unsafe title characters are collapsed.
	got = RenamedFilename("a.mp3", "2025-01-15", `Q3: "Plans/Goals"`)
	if got != "[2025-01-15] Q3 Plans Goals.mp3" {
		t.Errorf("got %q", got)
	}

	// Empty title keeps the original base name.
	got = RenamedFilename("original.wav", "2025-01-15", "   ")
	if got != "[2025-01-15] original.wav" {
		t.Errorf("got %q", got)
	}
}
