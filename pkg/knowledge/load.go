package knowledge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Corpus is the raw, unvalidated content of a knowledge file.
type Corpus struct {
	Steps          []domain.ApplicationStep  `mapstructure:"steps"`
	Templates      []domain.DocumentTemplate `mapstructure:"templates"`
	FAQs           []domain.FAQ              `mapstructure:"faqs"`
	TotalDuration  string                    `mapstructure:"totalDuration"`
	CriticalPoints []string                  `mapstructure:"criticalPoints"`
	Requirements   Requirements              `mapstructure:"requirements"`
	Categories     []string                  `mapstructure:"categories"`
}

// ValidationError lists every problem found in a corpus.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid knowledge corpus: %s", strings.Join(e.Problems, "; "))
}

// Load reads the corpus at path. A missing, unparsable or invalid file is
// logged as a warning and the built-in default is returned instead.
func Load(path string, logger *slog.Logger) *Base {
	if logger == nil {
		logger = logging.NewNop()
	}
	if path == "" {
		return Default()
	}

	b, err := LoadFile(path)
	if err != nil {
		logger.Warn("knowledge base unavailable, using built-in corpus", "path", path, "err", err)
		return Default()
	}
	logger.Debug("knowledge base loaded", "path", path, "steps", len(b.steps), "faqs", len(b.faqs))
	return b
}

// LoadFile reads and validates the corpus at path without falling back.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return build(c, path)
}

// Parse decodes YAML data into a Corpus. Unknown keys are rejected.
func Parse(data []byte) (Corpus, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Corpus{}, fmt.Errorf("failed to parse knowledge yaml: %w", err)
	}
	if raw == nil {
		return Corpus{}, errors.New("knowledge file is empty")
	}

	var c Corpus
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &c,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return Corpus{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Corpus{}, fmt.Errorf("failed to decode knowledge corpus: %w", err)
	}
	return c, nil
}

// NewBase validates c and returns the resulting Base.
func NewBase(c Corpus) (*Base, error) {
	return build(c, "")
}

// Validate checks the structural invariants of the corpus.
func (c Corpus) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Steps) == 0 {
		addf("at least one step is required")
	}
	if len(c.FAQs) == 0 {
		addf("at least one faq is required")
	}

	steps := make(map[string]domain.ApplicationStep, len(c.Steps))
	for i, s := range c.Steps {
		switch {
		case s.ID == "":
			addf("step %d has an empty id", i)
			continue
		case s.ID == domain.StepInitial || s.ID == domain.StepCompleted:
			addf("step id %q is reserved", s.ID)
		}
		if _, dup := steps[s.ID]; dup {
			addf("duplicate step id %q", s.ID)
		}
		steps[s.ID] = s
	}
	for _, s := range c.Steps {
		for _, next := range s.NextSteps {
			if _, ok := steps[next]; !ok {
				addf("step %q refers to unknown next step %q", s.ID, next)
			}
		}
	}
	if cyc := findCycle(c.Steps, steps); cyc != "" {
		addf("step chain has a cycle through %q", cyc)
	}

	templates := make(map[string]bool, len(c.Templates))
	for i, t := range c.Templates {
		if t.ID == "" {
			addf("template %d has an empty id", i)
			continue
		}
		if templates[t.ID] {
			addf("duplicate template id %q", t.ID)
		}
		templates[t.ID] = true
	}

	faqs := make(map[string]bool, len(c.FAQs))
	for i, f := range c.FAQs {
		if f.ID == "" {
			addf("faq %d has an empty id", i)
			continue
		}
		if faqs[f.ID] {
			addf("duplicate faq id %q", f.ID)
		}
		faqs[f.ID] = true
		if strings.TrimSpace(f.Question) == "" {
			addf("faq %q has an empty question", f.ID)
		}
		if strings.TrimSpace(f.Answer) == "" {
			addf("faq %q has an empty answer", f.ID)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func findCycle(order []domain.ApplicationStep, steps map[string]domain.ApplicationStep) string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(steps))

	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case visiting:
			return id
		case done:
			return ""
		}
		state[id] = visiting
		for _, next := range steps[id].NextSteps {
			if _, ok := steps[next]; !ok {
				continue
			}
			if cyc := visit(next); cyc != "" {
				return cyc
			}
		}
		state[id] = done
		return ""
	}

	for _, s := range order {
		if s.ID == "" {
			continue
		}
		if cyc := visit(s.ID); cyc != "" {
			return cyc
		}
	}
	return ""
}

func build(c Corpus, source string) (*Base, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b := &Base{
		source:         source,
		stepIndex:      make(map[string]int, len(c.Steps)),
		reachable:      make(map[string]bool, len(c.Steps)),
		totalDuration:  c.TotalDuration,
		criticalPoints: nonNil(c.CriticalPoints),
		requirements: Requirements{
			Basic:         nonNil(c.Requirements.Basic),
			Documentation: nonNil(c.Requirements.Documentation),
		},
		categories: nonNil(c.Categories),
	}

	for i, s := range c.Steps {
		s = cloneStep(s)
		s.RequiredDocuments = nonNil(s.RequiredDocuments)
		s.NextSteps = nonNil(s.NextSteps)
		s.Tips = nonNil(s.Tips)
		b.steps = append(b.steps, s)
		b.stepIndex[s.ID] = i
	}

	for _, t := range c.Templates {
		t.RequiredFields = nonNil(t.RequiredFields)
		b.templates = append(b.templates, t)
	}
	for _, f := range c.FAQs {
		f = cloneFAQ(f)
		f.Keywords = nonNil(f.Keywords)
		b.faqs = append(b.faqs, f)
	}

	queue := []string{b.steps[0].ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if b.reachable[id] {
			continue
		}
		b.reachable[id] = true
		queue = append(queue, b.steps[b.stepIndex[id]].NextSteps...)
	}

	return b, nil
}

// ValidateProgress checks p against the step chain: the current step must be
// a sentinel or a known step, and every completed step must be reachable.
func (b *Base) ValidateProgress(p domain.Progress) error {
	if !b.IsValidStep(p.CurrentStep) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownStep, p.CurrentStep)
	}
	for _, id := range p.CompletedSteps {
		if !b.Reachable(id) {
			return fmt.Errorf("%w: completed step %q is not reachable", domain.ErrInvalidProgress, id)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
