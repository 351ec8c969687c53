package ports

import "context"

// TemplateFile is the downloadable body of a document template.
type TemplateFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TemplateSource resolves template files by template ID.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type TemplateSource interface {
	// Open returns domain.ErrTemplateNotFound when no file exists for id.
	Open(ctx context.Context, id string) (*TemplateFile, error)

	// List returns the IDs of all templates with a file.
	List(ctx context.Context) ([]string, error)
}
