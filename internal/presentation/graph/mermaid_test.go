package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/pmguide/internal/presentation/graph"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		steps       []domain.ApplicationStep
		overlay     *graph.Overlay
		contains    []string
		notContains []string
	}{
		{
			name: "Shapes",
			steps: []domain.ApplicationStep{
				{ID: "a", Name: "開始", NextSteps: []string{"b"}},
				{ID: "b", Name: "中間", NextSteps: []string{"c"}},
				{ID: "c", Name: "終了"},
			},
			contains: []string{
				"a((\"開始\"))",
				"b[\"中間\"]",
				"c([\"終了\"])",
				"a --> b",
				"b --> c",
			},
		},
		{
			name: "Duration And Sanitization",
			steps: []domain.ApplicationStep{
				{ID: "first", NextSteps: []string{"doc-review"}},
				{ID: "doc-review", Name: "文書\"審査\"", EstimatedDuration: "1-2ヶ月"},
			},
			contains: []string{
				"first((\"first\"))",
				"doc_review([\"文書'審査' <br/> ⏱️ 1-2ヶ月\"])",
				"first --> doc_review",
			},
		},
		{
			name: "Alternative Transitions",
			steps: []domain.ApplicationStep{
				{ID: "a", NextSteps: []string{"b", "c"}},
				{ID: "b"},
				{ID: "c"},
			},
			contains: []string{"a --> b", "a -.-> c"},
		},
		{
			name: "Overlay",
			steps: []domain.ApplicationStep{
				{ID: "a", NextSteps: []string{"b"}},
				{ID: "b", NextSteps: []string{"c"}},
				{ID: "c"},
			},
			overlay: &graph.Overlay{CompletedSteps: []string{"a", "a", "ghost"}, CurrentStep: "b"},
			contains: []string{
				"classDef completed",
				"class a completed;",
				"class b current;",
			},
			notContains: []string{"class ghost", "class c"},
		},
		{
			name:        "Overlay Outside The Chain",
			steps:       []domain.ApplicationStep{{ID: "a"}},
			overlay:     &graph.Overlay{CurrentStep: domain.StepCompleted},
			contains:    []string{"classDef current"},
			notContains: []string{"class completed current;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.steps, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q, got:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestGenerateMermaid_DefaultCorpus(t *testing.T) {
	kb := knowledge.Default()
	p := domain.NewProgress()
	p.MarkCompleted("preparation")
	p.CurrentStep = "document_preparation"

	got := graph.GenerateMermaid(kb.Steps(), graph.OverlayFrom(p))

	if n := strings.Count(got, "-->"); n != 6 {
		t.Errorf("expected 6 transitions in the default chain, got %d", n)
	}
	for _, want := range []string{"preparation((", "contract_conclusion([", "class preparation completed;", "class document_preparation current;"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}
