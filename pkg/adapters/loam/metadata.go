package loam

// TemplateMetadata is the frontmatter of a template document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type TemplateMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Title       string `json:"title" mapstructure:"title"`
	Filename    string `json:"filename" mapstructure:"filename"`
	ContentType string `json:"content_type" mapstructure:"content_type"`
}
