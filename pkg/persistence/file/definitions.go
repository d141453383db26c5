package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

// DefinitionRepository stores definitions as definitions/<id>/<version>.json.
type DefinitionRepository struct {
	store *Persistence
}

func (r *DefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	if err := validateID(definition.ID); err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	path := r.store.path("definitions", definition.ID, strconv.Itoa(definition.Version)+".json")
	if err := writeJSON(path, definition); err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) Get(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	versions, err := r.versions(id)
	if err != nil {
		return nil, persistence.NewDefinitionError("Get", id, err)
	}

	if len(versions) == 0 {
		return nil, persistence.NewDefinitionError("Get", id, persistence.ErrDefinitionNotFound)
	}

	return r.GetVersion(ctx, id, versions[len(versions)-1])
}

func (r *DefinitionRepository) GetVersion(_ context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewDefinitionError("GetVersion", id, err)
	}

	var definition models.WorkflowDefinition

	err := readJSON(r.store.path("definitions", id, strconv.Itoa(version)+".json"), &definition)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewDefinitionError("GetVersion", id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return nil, persistence.NewDefinitionError("GetVersion", id, err)
	}

	return &definition, nil
}

// List returns the latest version of every definition.
func (r *DefinitionRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	entries, err := os.ReadDir(r.store.path("definitions"))
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.WorkflowDefinition{}, nil
	}

	if err != nil {
		return nil, persistence.NewDefinitionError("List", "*", err)
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		definition, err := r.Get(ctx, entry.Name())
		if persistence.IsDefinitionNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// versions returns the stored versions of a definition in ascending order.
func (r *DefinitionRepository) versions(id string) ([]int, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	files, err := jsonFiles(r.store.path("definitions", id))
	if err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(files))

	for _, file := range files {
		version, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(file), ".json"))
		if err != nil {
			continue
		}

		versions = append(versions, version)
	}

	slices.Sort(versions)

	return versions, nil
}
