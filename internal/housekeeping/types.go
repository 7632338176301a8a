package housekeeping

// Checkbox represents a single checkbox in markdown
type Checkbox struct {
	Line     int    // Index among parsed checkboxes
	Indent   string // Leading whitespace
	Checked  bool   // true if [x], false if [ ]
	Priority string // HIGH, MEDIUM, LOW or "" when untagged
	Text     string // Checkbox text content
	RawLine  string // Original line
}

// ChecklistStats represents checklist progress
type ChecklistStats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Pending   int     `json:"pending"`
	Progress  float64 `json:"progress"` // Completion percentage (0-100)
}

// TodoStatus is what /status shows about the todo file.
type TodoStatus struct {
	File     string         `json:"file"`
	Exists   bool           `json:"exists"`
	NextItem string         `json:"next_item,omitempty"`
	AllDone  bool           `json:"all_done"`
	Stats    ChecklistStats `json:"stats"`
}
