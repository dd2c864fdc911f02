package secrets

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RedactionMode selects how a detected secret line is rewritten.
type RedactionMode string

const (
	// ModeTyped replaces the matched rule's content with a typed marker
	// like "<REDACTED:aws-access-key-id>".
	ModeTyped RedactionMode = "typed"
	// ModeLengthPreserving replaces matched content with "***" runs of the
	// same visible length, preserving line structure for formatting.
	ModeLengthPreserving RedactionMode = "length-preserving"
	// ModeOff means no in-place redaction; the whole file is excluded
	// instead (the caller decides exclusion, this package only reports).
	ModeOff RedactionMode = "off"
)

// IsHardDeny reports whether path matches one of HardDenyPatterns. A
// hard-deny match drops the file entirely, bypassing AlwaysInclude and any
// redaction mode (spec.md §8's invariant).
func IsHardDeny(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range HardDenyPatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// IsAllowed reports whether path matches one of the configured allowlist
// globs, exempting it from secrets scanning entirely.
func IsAllowed(path string, allow []string) bool {
	for _, pattern := range allow {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Redact rewrites content's matched lines according to mode. Lines not
// referenced by any finding are left untouched. ModeOff returns content
// unmodified; the caller is responsible for excluding the file instead.
func Redact(content string, findings []Finding, mode RedactionMode) string {
	if mode == ModeOff || len(findings) == 0 {
		return content
	}

	redactLine := make(map[int]string, len(findings))
	for _, f := range findings {
		for line := f.LineStart; line <= f.LineEnd; line++ {
			redactLine[line] = f.RuleID
		}
	}

	lines := strings.Split(content, "\n")
	for i := range lines {
		ruleID, ok := redactLine[i+1]
		if !ok {
			continue
		}
		switch mode {
		case ModeTyped:
			lines[i] = "<REDACTED:" + ruleID + ">"
		case ModeLengthPreserving:
			lines[i] = strings.Repeat("*", len(lines[i]))
		}
	}
	return strings.Join(lines, "\n")
}
