package resumepdf

import (
	"regexp"
	"strings"
)

// DefaultFilenameBase is used when a title sanitizes to nothing.
const DefaultFilenameBase = "resume"

var (
	filenameStripRe = regexp.MustCompile(`[^a-zA-Z0-9\-_. ]`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a user-supplied title into a safe file name base.
// The title is trimmed, every character other than ASCII letters, digits,
// '-', '_', '.' and ' ' is dropped, and whitespace runs become a single '_'.
// An empty result falls back to [DefaultFilenameBase].
//
//	SanitizeFilename("Jane's Résumé — v1.pdf") // "Janes_Rsum_v1.pdf"
func SanitizeFilename(title string) string {
	s := strings.TrimSpace(title)
	s = filenameStripRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, "_")
	if s == "" {
		return DefaultFilenameBase
	}
	return s
}

// Filename returns the download name for a document titled title. The
// extension is always appended.
func Filename(title string) string {
	return SanitizeFilename(title) + ".pdf"
}
