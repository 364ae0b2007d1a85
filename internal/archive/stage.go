package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	stagedExt = ".json"
	dirPerm   = 0755
	filePerm  = 0644
)

// StageWriter persists event payloads under a staging directory while they
// wait for upload. The directory is created lazily on first write.
type StageWriter struct {
	dir string
}

// NewStageWriter creates a StageWriter rooted at dir.
func NewStageWriter(dir string) *StageWriter {
	return &StageWriter{dir: dir}
}

// Dir returns the staging directory path.
func (w *StageWriter) Dir() string {
	return w.dir
}

// Stage writes the event's raw payload to <dir>/<id>.json, overwriting any
// previous copy for the same id.
func (w *StageWriter) Stage(e *Event) (string, error) {
	if e == nil || e.ID == "" {
		return "", fmt.Errorf("stage: event has no identifier")
	}
	if err := os.MkdirAll(w.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create staging directory %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, e.ID+stagedExt)
	if err := os.WriteFile(path, e.Raw, filePerm); err != nil {
		return "", fmt.Errorf("write staged file %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes a staged file after a successful upload.
func (w *StageWriter) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove staged file %s: %w", path, err)
	}
	return nil
}

// Sweep lists staged files left behind by a previous run.
func (w *StageWriter) Sweep() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read staging directory %s: %w", w.dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stagedExt) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, entry.Name()))
	}
	return paths, nil
}
