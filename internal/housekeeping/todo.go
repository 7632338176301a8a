package housekeeping

import (
	"fmt"
	"os"
	"path/filepath"
)

// TodoReader reports progress of the repository's todo file.
type TodoReader struct {
	dir       string
	file      string
	checklist *Checklist
}

func NewTodoReader(dir, file string) *TodoReader {
	return &TodoReader{dir: dir, file: file, checklist: NewChecklist()}
}

// Status reads the todo file. A missing file is reported, not an error.
func (r *TodoReader) Status() (TodoStatus, error) {
	status := TodoStatus{File: r.file}

	raw, err := os.ReadFile(filepath.Join(r.dir, r.file))
	if os.IsNotExist(err) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("read todo file: %w", err)
	}

	content := string(raw)
	status.Exists = true
	status.NextItem = r.checklist.NextItem(content)
	status.Stats = r.checklist.GetStats(content)
	status.AllDone = r.checklist.IsFullyCompleted(content)
	return status, nil
}
