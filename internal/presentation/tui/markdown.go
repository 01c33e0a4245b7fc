package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeMarkdown describes a tree as markdown: its header, participants and
// an indented outline of its nodes.
func TreeMarkdown(tree *domain.BehaviorTreeFile, lib *domain.Library) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", tree.Title)
	if tree.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tree.Description)
	}
	fmt.Fprintf(&sb, "- **tree**: `%s`\n", tree.Name())
	if tree.Version != "" {
		fmt.Fprintf(&sb, "- **version**: %s\n", tree.Version)
	}
	if len(tree.Participants) > 0 {
		fmt.Fprintf(&sb, "- **participants**: %s\n", strings.Join(tree.Participants, ", "))
	}
	sb.WriteString("\n## Nodes\n\n")

	tree.Tree.Walk(func(n *domain.Node, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("- ")
		if !n.IsLeaf() {
			fmt.Fprintf(&sb, "**%s** _%s_", n.Name, n.Sequence.Kind)
		} else {
			fmt.Fprintf(&sb, "`%s`", n.Name)
			if lib != nil {
				if known, ok := lib.KnownNode(n.Name); ok {
					fmt.Fprintf(&sb, " (%s)", known.Type)
					if known.Description != "" {
						fmt.Fprintf(&sb, ": %s", known.Description)
					}
				}
			}
		}
		if n.Error != "" {
			fmt.Fprintf(&sb, " ⚠ `%s`", n.Error)
		}
		sb.WriteString("\n")
		return true
	})
	return sb.String()
}

// WorkflowMarkdown describes a workflow as markdown.
func WorkflowMarkdown(wf *domain.WorkflowFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", wf.Title)
	if wf.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", wf.Description)
	}
	if wf.ProcessTLDR != "" {
		fmt.Fprintf(&sb, "> %s\n\n", wf.ProcessTLDR)
	}

	sb.WriteString("## Steps\n\n")
	for i, s := range wf.Workflow {
		fmt.Fprintf(&sb, "%d. `%s`", i+1, s.Name)
		if s.Why != "" {
			fmt.Fprintf(&sb, ": %s", s.Why)
		}
		sb.WriteString("\n")
	}

	if len(wf.Parameters) > 0 {
		sb.WriteString("\n## Parameters\n\n| name | value | unit | description |\n|---|---|---|---|\n")
		for _, p := range wf.Parameters {
			unit := ""
			if p.Unit != nil {
				unit = string(*p.Unit)
			}
			fmt.Fprintf(&sb, "| %s | %g | %s | %s |\n", p.Name, p.Value, unit, p.Description)
		}
	}
	return sb.String()
}
