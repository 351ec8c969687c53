package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
)

// Templates implements ports.TemplateSource using an in-memory map.
type Templates struct {
	files map[string]ports.TemplateFile
}

// NewTemplates creates a template source from the provided files, keyed by template ID.
func NewTemplates(files map[string]ports.TemplateFile) *Templates {
	copied := make(map[string]ports.TemplateFile, len(files))
	for id, f := range files {
		f.Data = append([]byte(nil), f.Data...)
		copied[id] = f
	}
	return &Templates{files: copied}
}

// Open returns a copy of the file registered for id.
func (t *Templates) Open(ctx context.Context, id string) (*ports.TemplateFile, error) {
	f, ok := t.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	f.Data = append([]byte(nil), f.Data...)
	return &f, nil
}

// List returns all available template IDs.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(t.files))
	for k := range t.files {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
