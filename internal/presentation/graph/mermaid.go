package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/pmguide/pkg/domain"
)

// Overlay contains session progress to visualize on the flow.
type Overlay struct {
	CompletedSteps []string
	CurrentStep    string
}

// OverlayFrom builds an Overlay from session progress.
func OverlayFrom(p domain.Progress) *Overlay {
	return &Overlay{CompletedSteps: p.CompletedSteps, CurrentStep: p.CurrentStep}
}

// GenerateMermaid produces a Mermaid flowchart of the certification steps.
// Shapes:
// - First step: ((Circle))
// - Final step: ([Stadium])
// - Default: [Rectangle]
// Steps with an estimated duration carry it under the name.
func GenerateMermaid(steps []domain.ApplicationStep, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case len(step.NextSteps) == 0:
			opener, closer = "([", "])"
		}

		label := escapeLabel(step.Name)
		if label == "" {
			label = step.ID
		}
		if step.EstimatedDuration != "" {
			label = fmt.Sprintf("%s <br/> ⏱️ %s", label, escapeLabel(step.EstimatedDuration))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for j, next := range step.NextSteps {
			arrow := "-->"
			if j > 0 {
				// Alternatives after the canonical successor.
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		known := make(map[string]bool, len(steps))
		for _, s := range steps {
			known[s.ID] = true
		}

		seen := make(map[string]bool)
		for _, id := range overlay.CompletedSteps {
			if !known[id] || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s completed;\n", sanitizeMermaidID(id))
		}

		if known[overlay.CurrentStep] {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
