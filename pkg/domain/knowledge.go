package domain

// ApplicationStep is one stage of the certification process.
// NextSteps[0] is the canonical successor; an empty NextSteps marks the final stage.
type ApplicationStep struct {
	ID                string   `json:"id" yaml:"id" mapstructure:"id"`
	Name              string   `json:"name" yaml:"name" mapstructure:"name"`
	Description       string   `json:"description" yaml:"description" mapstructure:"description"`
	RequiredDocuments []string `json:"requiredDocuments" yaml:"requiredDocuments" mapstructure:"requiredDocuments"`
	EstimatedDuration string   `json:"estimatedDuration" yaml:"estimatedDuration" mapstructure:"estimatedDuration"`
	NextSteps         []string `json:"nextSteps" yaml:"nextSteps" mapstructure:"nextSteps"`
	Tips              []string `json:"tips" yaml:"tips" mapstructure:"tips"`
}

// Successor returns the canonical next step ID, or "" for the final stage.
func (s ApplicationStep) Successor() string {
	if len(s.NextSteps) == 0 {
		return ""
	}
	return s.NextSteps[0]
}

// DocumentTemplate describes an application form.
type DocumentTemplate struct {
	ID             string   `json:"id" yaml:"id" mapstructure:"id"`
	Name           string   `json:"name" yaml:"name" mapstructure:"name"`
	Description    string   `json:"description" yaml:"description" mapstructure:"description"`
	Category       string   `json:"category,omitempty" yaml:"category" mapstructure:"category"`
	Format         string   `json:"format,omitempty" yaml:"format" mapstructure:"format"`
	RequiredFields []string `json:"requiredFields" yaml:"requiredFields" mapstructure:"requiredFields"`
	SampleURL      string   `json:"sampleUrl,omitempty" yaml:"sampleUrl" mapstructure:"sampleUrl"`
	DownloadURL    string   `json:"downloadUrl,omitempty" yaml:"downloadUrl" mapstructure:"downloadUrl"`
}

// FAQ is a frequently asked question with its canned answer.
type FAQ struct {
	ID               string   `json:"id" yaml:"id" mapstructure:"id"`
	Question         string   `json:"question" yaml:"question" mapstructure:"question"`
	Answer           string   `json:"answer" yaml:"answer" mapstructure:"answer"`
	Category         string   `json:"category" yaml:"category" mapstructure:"category"`
	Keywords         []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	RelatedQuestions []string `json:"relatedQuestions,omitempty" yaml:"relatedQuestions" mapstructure:"relatedQuestions"`
}
