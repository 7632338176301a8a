package housekeeping

import (
	"regexp"
	"strings"
)

const (
	// Regex pattern: captures indent, checkbox state, and text
	// Example: "  - [x] Task name" → groups: ["  ", "x", "Task name"]
	CheckboxPattern = `(?m)^(\s*)[-*] \[([ xX])\] (.+)$`
)

// Priorities in the order NextItem picks them.
var Priorities = []string{"HIGH", "MEDIUM", "LOW"}

var (
	fencedCodeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern      = regexp.MustCompile("`[^`]+`")
	priorityPattern        = regexp.MustCompile(`^\[(HIGH|MEDIUM|LOW)\]\s*`)
)

// Checklist reads markdown task lists.
type Checklist struct {
	pattern *regexp.Regexp
}

func NewChecklist() *Checklist {
	return &Checklist{
		pattern: regexp.MustCompile(CheckboxPattern),
	}
}

// sanitizeContent removes code blocks before checkbox parsing
// Prevents matching fake checkboxes in code examples
func sanitizeContent(content string) string {
	sanitized := fencedCodeBlockPattern.ReplaceAllString(content, "")
	return inlineCodePattern.ReplaceAllString(sanitized, "")
}

// ParseCheckboxes extracts all checkboxes from markdown
func (s *Checklist) ParseCheckboxes(content string) []Checkbox {
	sanitized := sanitizeContent(content)

	matches := s.pattern.FindAllStringSubmatch(sanitized, -1)
	checkboxes := make([]Checkbox, 0, len(matches))

	for i, match := range matches {
		if len(match) != 4 {
			continue
		}

		text := strings.TrimSpace(match[3])
		priority := ""
		if m := priorityPattern.FindStringSubmatch(text); m != nil {
			priority = m[1]
		}

		checkboxes = append(checkboxes, Checkbox{
			Line:     i,
			Indent:   match[1],
			Checked:  strings.ToLower(match[2]) == "x",
			Priority: priority,
			Text:     text,
			RawLine:  strings.TrimSpace(match[0]),
		})
	}

	return checkboxes
}

// GetStats calculates checklist statistics
func (s *Checklist) GetStats(content string) ChecklistStats {
	checkboxes := s.ParseCheckboxes(content)
	total := len(checkboxes)
	if total == 0 {
		return ChecklistStats{}
	}

	completed := 0
	for _, cb := range checkboxes {
		if cb.Checked {
			completed++
		}
	}

	return ChecklistStats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
		Progress:  float64(completed) / float64(total) * 100,
	}
}

// NextItem returns the first unchecked line by priority: HIGH, then MEDIUM,
// then LOW, then any other unchecked item. Empty when nothing is pending.
func (s *Checklist) NextItem(content string) string {
	checkboxes := s.ParseCheckboxes(content)

	for _, p := range Priorities {
		for _, cb := range checkboxes {
			if !cb.Checked && cb.Priority == p {
				return cb.RawLine
			}
		}
	}
	for _, cb := range checkboxes {
		if !cb.Checked {
			return cb.RawLine
		}
	}
	return ""
}

// IsFullyCompleted checks if all checkboxes are checked
func (s *Checklist) IsFullyCompleted(content string) bool {
	checkboxes := s.ParseCheckboxes(content)
	if len(checkboxes) == 0 {
		return false // No checkboxes = not a checklist
	}

	for _, cb := range checkboxes {
		if !cb.Checked {
			return false
		}
	}
	return true
}
