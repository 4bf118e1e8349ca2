package usecase

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	recStampRe  = regexp.MustCompile(`REC_(\d{4})(\d{2})(\d{2})_\d{6}`)
	bracketedRe = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2})\]`)
	isoDateRe   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	compactRe   = regexp.MustCompile(`(20\d{2})(\d{2})(\d{2})`)
)

// ExtractRecordingDate pulls a recording date out of the source filename.
// Recognized forms, in priority order: recorder stamps (REC_20250115_093000),
// an already-bracketed date ([2025-01-15]), a bare ISO date, and a compact
// YYYYMMDD run. Filenames with no recognizable date fall back to now.
func ExtractRecordingDate(filename string, now time.Time) string {
	if m := recStampRe.FindStringSubmatch(filename); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := bracketedRe.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	if m := isoDateRe.FindStringSubmatch(filename); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := compactRe.FindStringSubmatch(filename); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	return now.Format("2006-01-02")
}

// RenamedFilename builds the archival name "[date] title.ext" for the source
// recording, keeping the original extension.
func RenamedFilename(originalName, date, title string) string {
	ext := filepath.Ext(originalName)
	clean := strings.Join(strings.Fields(unsafeTitleChars.ReplaceAllString(title, " ")), " ")
	if clean == "" {
		clean = strings.TrimSuffix(originalName, ext)
	}
	return fmt.Sprintf("[%s] %s%s", date, clean, ext)
}

var unsafeTitleChars = regexp.MustCompile(`[\\/*?:"<>|\n\r]+`)
