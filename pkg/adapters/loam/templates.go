package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
)

const defaultContentType = "text/markdown; charset=utf-8"

// Templates adapts a Loam repository to the ports.TemplateSource interface.
// Each document is one downloadable template; its body is the file content.
type Templates struct {
	Repo *loam.TypedRepository[TemplateMetadata]
}

var _ ports.TemplateSource = (*Templates)(nil)

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[TemplateMetadata]) *Templates {
	return &Templates{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Templates, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// ReadOnly keeps Loam from sandboxing or writing to the template directory.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	return New(loam.NewTypedRepository[TemplateMetadata](repo)), nil
}

// Open retrieves the template document for id.
// Loam resolves "form-1" to form-1.md, so callers pass bare template IDs.
func (t *Templates) Open(ctx context.Context, id string) (*ports.TemplateFile, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, id)
	}

	doc, err := t.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTemplateNotFound, id, err)
	}

	filename := doc.Data.Filename
	if filename == "" {
		filename = trimExtension(id) + ".md"
	}
	contentType := doc.Data.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	return &ports.TemplateFile{
		Filename:    filename,
		ContentType: contentType,
		Data:        []byte(doc.Content),
	}, nil
}

// List lists all template IDs in the repository.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	docs, err := t.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext == "" {
		return id
	}
	return strings.TrimSuffix(id, ext)
}
