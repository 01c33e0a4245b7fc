package tui_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_Outcome(t *testing.T) {
	var buf bytes.Buffer
	p := tui.NewPrinter(&buf)

	out := domain.Failure("jammed").WithLabel("tip_error")
	out.Node = "press_tip"
	p.Outcome("get_tip", out, 1500*time.Microsecond)

	// A buffer is not a terminal, so no escape sequences are written.
	assert.Equal(t, "failure get_tip 2ms\n  node:   press_tip\n  reason: jammed\n  labels: [tip_error]\n", buf.String())
}

func TestPrinter_Report(t *testing.T) {
	var buf bytes.Buffer
	tui.NewPrinter(&buf).Report(&runner.Report{
		Workflow: "Transfer",
		RunID:    "run-1",
		Steps: []runner.StepResult{
			{Step: domain.WorkflowStep{Name: "get_tip"}, Outcome: domain.Success(), Duration: time.Millisecond},
			{Step: domain.WorkflowStep{Name: "aspirate_sample"}, Outcome: domain.Failure("clogged")},
			{Step: domain.WorkflowStep{Name: "discard_tip"}, Skipped: true},
		},
		Outcome:  domain.Failure("clogged"),
		Duration: 3 * time.Millisecond,
	})

	got := buf.String()
	assert.Contains(t, got, "Transfer run run-1\n")
	assert.Contains(t, got, "  1. success get_tip 1ms\n")
	assert.Contains(t, got, "  2. failure aspirate_sample 0s\n     reason: clogged\n")
	assert.Contains(t, got, "  3. skipped discard_tip\n")
	assert.Contains(t, got, "failure 3ms\n")
}

func TestMarkdown(t *testing.T) {
	tree := &domain.BehaviorTreeFile{
		Title:        "Get tip",
		Participants: []string{"gantry", "pipette"},
		Tree: domain.Node{Name: "get_tip", Sequence: &domain.Sequence{
			Kind: domain.SequenceFallback,
			Nodes: []domain.Node{
				{Name: "is_tip_attached"},
				{Name: "press_tip", Error: "tip_error"},
			},
		}},
	}
	md := tui.TreeMarkdown(tree, nil)
	assert.Contains(t, md, "# Get tip\n")
	assert.Contains(t, md, "- **participants**: gantry, pipette\n")
	assert.Contains(t, md, "- **get_tip** _fallback_\n  - `is_tip_attached`\n  - `press_tip` ⚠ `tip_error`\n")

	ms := domain.UnitMilliseconds
	wf := &domain.WorkflowFile{
		Title:      "Transfer",
		Workflow:   []domain.WorkflowStep{{Name: "get_tip", Why: "fresh tip"}},
		Parameters: []domain.Value{{ValueSchema: domain.ValueSchema{Name: "settle", Unit: &ms}, Value: 250}},
	}
	md = tui.WorkflowMarkdown(wf)
	assert.Contains(t, md, "1. `get_tip`: fresh tip\n")
	assert.Contains(t, md, "| settle | 250 | ms |  |\n")
}

func TestRenderer_NonInteractivePassesThrough(t *testing.T) {
	out, err := tui.NewRenderer(false)("# title\n")
	assert.NoError(t, err)
	assert.Equal(t, "# title\n", out)
}
