package knowledge

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/pmguide/pkg/domain"
)

const (
	// SourceBuiltin is reported by Source when the built-in corpus is in use.
	SourceBuiltin = "builtin"

	completedStepName   = "完了"
	completedMessage    = "おめでとうございます！全てのステップが完了しました。"
	maintainCertAction  = "認証の維持管理を継続してください"
	questionPrefixRunes = 10
)

// Requirements holds the fixed eligibility and documentation obligations.
type Requirements struct {
	Basic         []string `json:"basic" mapstructure:"basic"`
	Documentation []string `json:"documentation" mapstructure:"documentation"`
}

// FlowOverview is the full ordered step list plus the gating prerequisites.
type FlowOverview struct {
	Steps          []domain.ApplicationStep `json:"steps"`
	TotalDuration  string                   `json:"totalDuration"`
	CriticalPoints []string                 `json:"criticalPoints"`
}

// NextStepInfo narrates the step following the current one.
// Overview is set instead of the other fields when the current step is unknown.
type NextStepInfo struct {
	CurrentStep string        `json:"currentStep,omitempty"`
	NextStep    string        `json:"nextStep,omitempty"`
	Description string        `json:"description,omitempty"`
	Actions     []string      `json:"actions,omitempty"`
	Overview    *FlowOverview `json:"overview,omitempty"`
}

// DocumentInfo lists the document templates and their categories.
type DocumentInfo struct {
	Templates      []domain.DocumentTemplate `json:"templates"`
	TotalDocuments int                       `json:"totalDocuments"`
	Categories     []string                  `json:"categories"`
}

// Base is the validated, immutable knowledge corpus.
// It is safe for concurrent use; every accessor returns copies.
type Base struct {
	source         string
	steps          []domain.ApplicationStep
	stepIndex      map[string]int
	reachable      map[string]bool
	templates      []domain.DocumentTemplate
	faqs           []domain.FAQ
	totalDuration  string
	criticalPoints []string
	requirements   Requirements
	categories     []string
}

// Source returns the file the corpus was read from, or SourceBuiltin.
func (b *Base) Source() string {
	return b.source
}

// Step returns the step with the given ID.
func (b *Base) Step(id string) (domain.ApplicationStep, bool) {
	i, ok := b.stepIndex[id]
	if !ok {
		return domain.ApplicationStep{}, false
	}
	return cloneStep(b.steps[i]), true
}

// Steps returns all steps in flow order.
func (b *Base) Steps() []domain.ApplicationStep {
	out := make([]domain.ApplicationStep, len(b.steps))
	for i, s := range b.steps {
		out[i] = cloneStep(s)
	}
	return out
}

// FirstStep returns the ID of the step that follows "initial".
func (b *Base) FirstStep() string {
	return b.steps[0].ID
}

// FlowOverview returns the ordered step list, the total duration estimate
// and the critical points.
func (b *Base) FlowOverview() FlowOverview {
	return FlowOverview{
		Steps:          b.Steps(),
		TotalDuration:  b.totalDuration,
		CriticalPoints: slices.Clone(b.criticalPoints),
	}
}

// NextStep narrates the successor of currentStepID.
// An unknown ID yields the flow overview; the final step (and the completed
// marker) yield a completion message with a maintenance action.
func (b *Base) NextStep(currentStepID string) NextStepInfo {
	if currentStepID == domain.StepCompleted {
		return completionInfo(completedStepName)
	}

	current, ok := b.Step(currentStepID)
	if !ok {
		overview := b.FlowOverview()
		return NextStepInfo{Overview: &overview}
	}

	next, ok := b.Step(current.Successor())
	if !ok {
		return completionInfo(current.Name)
	}

	return NextStepInfo{
		CurrentStep: current.Name,
		NextStep:    next.Name,
		Description: next.Description,
		Actions:     slices.Clone(next.Tips),
	}
}

func completionInfo(currentName string) NextStepInfo {
	return NextStepInfo{
		CurrentStep: currentName,
		NextStep:    completedStepName,
		Description: completedMessage,
		Actions:     []string{maintainCertAction},
	}
}

// DocumentInfo returns all templates, their count and the category list.
func (b *Base) DocumentInfo() DocumentInfo {
	return DocumentInfo{
		Templates:      b.Templates(""),
		TotalDocuments: len(b.templates),
		Categories:     slices.Clone(b.categories),
	}
}

// Templates returns the templates of a category in corpus order.
// An empty category returns every template.
func (b *Base) Templates(category string) []domain.DocumentTemplate {
	out := make([]domain.DocumentTemplate, 0, len(b.templates))
	for _, t := range b.templates {
		if category != "" && t.Category != category {
			continue
		}
		t.RequiredFields = slices.Clone(t.RequiredFields)
		out = append(out, t)
	}
	return out
}

// Template returns the template with the given ID.
func (b *Base) Template(id string) (domain.DocumentTemplate, bool) {
	for _, t := range b.templates {
		if t.ID == id {
			t.RequiredFields = slices.Clone(t.RequiredFields)
			return t, true
		}
	}
	return domain.DocumentTemplate{}, false
}

// Requirements returns the basic eligibility and documentation lists.
func (b *Base) Requirements() Requirements {
	return Requirements{
		Basic:         slices.Clone(b.requirements.Basic),
		Documentation: slices.Clone(b.requirements.Documentation),
	}
}

// FAQs returns every FAQ entry in corpus order.
func (b *Base) FAQs() []domain.FAQ {
	out := make([]domain.FAQ, len(b.faqs))
	for i, f := range b.faqs {
		out[i] = cloneFAQ(f)
	}
	return out
}

// SearchFAQ returns the first FAQ, in corpus order, with a keyword contained
// in the query. Failing that, it returns the first FAQ whose question contains
// the query or whose question prefix is contained in the query. Matching is
// case-insensitive. The second result is false when nothing matches.
func (b *Base) SearchFAQ(query string) (domain.FAQ, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.FAQ{}, false
	}

	for _, faq := range b.faqs {
		for _, kw := range faq.Keywords {
			kw = strings.ToLower(kw)
			if kw != "" && strings.Contains(q, kw) {
				return cloneFAQ(faq), true
			}
		}
	}

	for _, faq := range b.faqs {
		question := strings.ToLower(strings.TrimSpace(faq.Question))
		if question == "" {
			continue
		}
		if strings.Contains(question, q) || strings.Contains(q, runePrefix(question, questionPrefixRunes)) {
			return cloneFAQ(faq), true
		}
	}

	return domain.FAQ{}, false
}

// IsValidStep reports whether id may be used as Progress.CurrentStep.
func (b *Base) IsValidStep(id string) bool {
	if id == domain.StepInitial || id == domain.StepCompleted {
		return true
	}
	_, ok := b.stepIndex[id]
	return ok
}

// Reachable reports whether stepID can be reached from "initial" via nextSteps.
func (b *Base) Reachable(stepID string) bool {
	return b.reachable[stepID]
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func cloneStep(s domain.ApplicationStep) domain.ApplicationStep {
	s.RequiredDocuments = slices.Clone(s.RequiredDocuments)
	s.NextSteps = slices.Clone(s.NextSteps)
	s.Tips = slices.Clone(s.Tips)
	return s
}

func cloneFAQ(f domain.FAQ) domain.FAQ {
	f.Keywords = slices.Clone(f.Keywords)
	f.RelatedQuestions = slices.Clone(f.RelatedQuestions)
	return f
}
