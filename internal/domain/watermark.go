package domain

import (
	"strings"
	"time"
)

// FolderTSLayout is the timestamp layout used for landing-zone folder names.
// The fixed-width form means lexicographic order equals chronological order,
// which the watermark comparison relies on.
const FolderTSLayout = "2006-01-02-15-04-05"

// Watermark records the last processed folder timestamp for one source.
// A missing watermark means the source has never been processed.
type Watermark struct {
	Source    string // dataset name
	FolderTS  string // YYYY-MM-DD-HH-MM-SS
	UpdatedAt time.Time
}

// IsZero reports whether the watermark has never been advanced.
func (w Watermark) IsZero() bool { return w.FolderTS == "" }

// ParseFolderTS validates a landing folder name as a folder timestamp.
// Underscores are tolerated in place of dashes (legacy producers).
func ParseFolderTS(name string) (string, error) {
	cleaned := strings.ReplaceAll(name, "_", "-")
	if _, err := time.Parse(FolderTSLayout, cleaned); err != nil {
		return "", ErrValidation("folder %q is not a %s timestamp", name, FolderTSLayout)
	}
	return cleaned, nil
}

// FolderTSAfter reports whether candidate is strictly newer than current.
// An empty current (zero watermark) is older than any valid candidate.
func FolderTSAfter(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	return current == "" || candidate > current
}
