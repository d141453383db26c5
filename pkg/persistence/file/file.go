// Package file provides file-based persistence for definitions, workflow states and
// event records. Every entity is one JSON document under the root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/flowcore/pkg/persistence"
)

const (
	dirMode  = 0o750
	fileMode = 0o600
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	// mu serialises writers so version checks and replacements are atomic within
	// the process.
	mu sync.Mutex

	definitions *DefinitionRepository
	workflows   *WorkflowStateRepository
	events      *EventRepository
}

// NewPersistence creates a file persistence rooted at the given directory; a
// file:// prefix is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.definitions = &DefinitionRepository{store: p}
	p.workflows = &WorkflowStateRepository{store: p}
	p.events = &EventRepository{store: p}

	return p
}

func (p *Persistence) Definitions() persistence.DefinitionRepository {
	return p.definitions
}

func (p *Persistence) Workflows() persistence.WorkflowStateRepository {
	return p.workflows
}

func (p *Persistence) Events() persistence.EventRepository {
	return p.events
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists or can be created.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(p.root, dirMode); err != nil {
		return fmt.Errorf("file persistence root %s is unusable: %w", p.root, err)
	}

	return nil
}

// validateID rejects identifiers that would escape their directory.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", persistence.ErrInvalidID, id)
	}

	return nil
}

func (p *Persistence) path(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

// readJSON decodes a document; a missing file reports fs.ErrNotExist.
func readJSON(path string, target any) error {
	body, err := os.ReadFile(path) // #nosec G304 -- path built from validated ids
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// writeJSON replaces a document atomically through a temporary file and a rename.
func writeJSON(path string, value any) error {
	body, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// jsonFiles lists the documents of a directory; a missing directory is empty.
func jsonFiles(dir string) ([]string, error) {
	matches, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, filepath.Join(dir, match))
	}

	return paths, nil
}
