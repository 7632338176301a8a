package housekeeping

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	pkgLog "repo-sync-automation/pkg/log"
)

const (
	changelogTitle  = "# Changelog"
	unreleasedLabel = "## [Unreleased]"
	dateFormat      = "2006-01-02"
)

var unreleasedPattern = regexp.MustCompile(`(?m)^## \[Unreleased\].*$`)

// UpdateChangelog makes sure content has an "## [Unreleased] - <date>" heading.
// An existing Unreleased heading gets the new date, otherwise one is inserted
// after the title. Applying it twice for the same date changes nothing.
func UpdateChangelog(content, date string) string {
	heading := unreleasedLabel + " - " + date

	if strings.TrimSpace(content) == "" {
		return changelogTitle + "\n\n" + heading + "\n"
	}

	if loc := unreleasedPattern.FindStringIndex(content); loc != nil {
		return content[:loc[0]] + heading + content[loc[1]:]
	}

	if strings.HasPrefix(content, "# ") {
		titleEnd := strings.Index(content, "\n")
		if titleEnd < 0 {
			return content + "\n\n" + heading + "\n"
		}
		return content[:titleEnd+1] + "\n" + heading + "\n" + content[titleEnd+1:]
	}

	return changelogTitle + "\n\n" + heading + "\n\n" + content
}

// ChangelogHook keeps the changelog's Unreleased heading current after each sync.
type ChangelogHook struct {
	path string
	now  func() time.Time
	l    pkgLog.Logger
}

// NewChangelogHook manages file (relative to dir).
func NewChangelogHook(dir, file string, l pkgLog.Logger) *ChangelogHook {
	return &ChangelogHook{
		path: filepath.Join(dir, file),
		now:  time.Now,
		l:    l,
	}
}

func (h *ChangelogHook) Name() string {
	return "changelog"
}

// Run writes the file only when its content changes.
func (h *ChangelogHook) Run(ctx context.Context) error {
	raw, err := os.ReadFile(h.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read changelog: %w", err)
	}

	content := string(raw)
	updated := UpdateChangelog(content, h.now().UTC().Format(dateFormat))
	if updated == content {
		return nil
	}

	if err := os.WriteFile(h.path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write changelog: %w", err)
	}
	h.l.Infof(ctx, "housekeeping: updated %s", filepath.Base(h.path))
	return nil
}
