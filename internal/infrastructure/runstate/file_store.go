package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

// FileStore keeps the last run-start timestamp in a single text file.
type FileStore struct {
	path string
}

var _ ports.RunState = (*FileStore)(nil)

// NewFileStore points the tracker at the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LastRun reads the stored timestamp. A missing file or unparsable
// content means "never run" and yields the epoch sentinel.
func (f *FileStore) LastRun() time.Time {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return domain.Epoch
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(raw)))
	if err != nil {
		return domain.Epoch
	}

	return ts.UTC()
}

// SetLastRun overwrites the stored timestamp, creating the parent
// directory on first use.
func (f *FileStore) SetLastRun(t time.Time) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create run-state dir: %w", err)
		}
	}

	payload := t.UTC().Format(time.RFC3339)
	if err := os.WriteFile(f.path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	return nil
}
