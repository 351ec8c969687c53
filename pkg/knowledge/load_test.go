package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedCorpus = "../../knowledge/privacy_mark.yaml"

func TestLoadFile_ShippedCorpusMatchesDefault(t *testing.T) {
	kb, err := LoadFile(shippedCorpus)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Steps(), kb.Steps())
	assert.Equal(t, def.Templates(""), kb.Templates(""))
	assert.Equal(t, def.FAQs(), kb.FAQs())
	assert.Equal(t, def.FlowOverview(), kb.FlowOverview())
	assert.Equal(t, def.Requirements(), kb.Requirements())
	assert.Equal(t, def.DocumentInfo(), kb.DocumentInfo())
	assert.Equal(t, shippedCorpus, kb.Source())
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewNop()

	t.Run("Missing file", func(t *testing.T) {
		kb := Load(filepath.Join(dir, "absent.yaml"), logger)
		assert.Equal(t, SourceBuiltin, kb.Source())
		assert.Len(t, kb.Steps(), 7)
	})

	t.Run("Malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("steps: [\n"), 0644))
		kb := Load(path, logger)
		assert.Equal(t, SourceBuiltin, kb.Source())
	})

	t.Run("Invalid corpus", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("steps: []\nfaqs: []\n"), 0644))
		kb := Load(path, nil)
		assert.Equal(t, SourceBuiltin, kb.Source())
	})

	t.Run("Empty path", func(t *testing.T) {
		assert.Equal(t, SourceBuiltin, Load("", logger).Source())
	})
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("steps: []\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestLoadFile_CustomCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := `
steps:
  - id: a
    name: A
    nextSteps: [b]
  - id: b
    name: B
faqs:
  - id: f1
    question: What?
    answer: That.
    keywords: [what]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	kb, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "a", kb.FirstStep())
	assert.Equal(t, "B", kb.NextStep("a").NextStep)
	assert.Equal(t, "完了", kb.NextStep("b").NextStep)
	assert.Empty(t, kb.Templates(""))

	b, ok := kb.Step("b")
	require.True(t, ok)
	assert.NotNil(t, b.NextSteps)
	assert.NotNil(t, b.Tips)
}

func TestCorpusValidate(t *testing.T) {
	step := func(id string, next ...string) domain.ApplicationStep {
		return domain.ApplicationStep{ID: id, Name: id, NextSteps: next}
	}
	faqs := []domain.FAQ{{ID: "f1", Question: "q", Answer: "a"}}

	tests := []struct {
		name    string
		corpus  Corpus
		problem string
	}{
		{"No steps", Corpus{FAQs: faqs}, "at least one step"},
		{"No faqs", Corpus{Steps: []domain.ApplicationStep{step("a")}}, "at least one faq"},
		{"Empty step id", Corpus{Steps: []domain.ApplicationStep{step("")}, FAQs: faqs}, "empty id"},
		{"Reserved step id", Corpus{Steps: []domain.ApplicationStep{step(domain.StepCompleted)}, FAQs: faqs}, "reserved"},
		{"Duplicate step", Corpus{Steps: []domain.ApplicationStep{step("a"), step("a")}, FAQs: faqs}, "duplicate step"},
		{"Dangling next", Corpus{Steps: []domain.ApplicationStep{step("a", "z")}, FAQs: faqs}, "unknown next step"},
		{"Cycle", Corpus{Steps: []domain.ApplicationStep{step("a", "b"), step("b", "a")}, FAQs: faqs}, "cycle"},
		{"Duplicate faq", Corpus{Steps: []domain.ApplicationStep{step("a")}, FAQs: append(faqs, faqs[0])}, "duplicate faq"},
		{"Empty faq question", Corpus{Steps: []domain.ApplicationStep{step("a")}, FAQs: []domain.FAQ{{ID: "x", Answer: "a"}}}, `faq "x" has an empty question`},
		{"Blank faq answer", Corpus{Steps: []domain.ApplicationStep{step("a")}, FAQs: []domain.FAQ{{ID: "x", Question: "q", Answer: "  "}}}, `faq "x" has an empty answer`},
		{
			"Duplicate template",
			Corpus{
				Steps:     []domain.ApplicationStep{step("a")},
				FAQs:      faqs,
				Templates: []domain.DocumentTemplate{{ID: "t"}, {ID: "t"}},
			},
			"duplicate template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.corpus.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}

	assert.NoError(t, DefaultCorpus().Validate())
}

func TestLoad_FAQWithoutQuestionFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := `
steps:
  - id: a
    name: A
faqs:
  - id: x
    answer: Matches everything if accepted.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := NewBase(Corpus{
		Steps: []domain.ApplicationStep{{ID: "a"}},
		FAQs:  []domain.FAQ{{ID: "x", Answer: "a"}},
	})
	require.Error(t, err)

	kb := Load(path, nil)
	assert.Equal(t, Default().Source(), kb.Source())
	_, ok := kb.SearchFAQ("totally unrelated words")
	assert.False(t, ok)
}

func TestSearchFAQ_SkipsEmptyQuestion(t *testing.T) {
	kb := &Base{faqs: []domain.FAQ{
		{ID: "blank", Answer: "a"},
		{ID: "real", Question: "費用はいくらですか", Answer: "b"},
	}}

	_, ok := kb.SearchFAQ("totally unrelated words")
	assert.False(t, ok)

	faq, ok := kb.SearchFAQ("費用")
	require.True(t, ok)
	assert.Equal(t, "real", faq.ID)
}

func TestNewBase_CopiesInput(t *testing.T) {
	c := DefaultCorpus()
	kb, err := NewBase(c)
	require.NoError(t, err)

	c.Steps[0].Name = "mutated"
	c.CriticalPoints[0] = "mutated"

	s, _ := kb.Step("preparation")
	assert.Equal(t, "事前準備", s.Name)
	assert.NotEqual(t, "mutated", kb.FlowOverview().CriticalPoints[0])
}
