package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Overlay contains run data to visualize on a tree graph.
type Overlay struct {
	// Visited lists the names of nodes that were evaluated.
	Visited []string
	// Failed names the node the failure originated from, if any.
	Failed string
}

// Tree produces a Mermaid flowchart of a behavior tree.
// It applies behavior-tree shapes:
//   - Children: [/"→ name"/]
//   - Fallback: {{"? name"}}
//   - Condition leaf: (["name"])
//   - Error leaf: >"name"]
//   - Sequence leaf: [["name"]]
//   - Action leaf: ["name"]
//
// Leaf types are looked up in lib when it is not nil; without a library,
// leaves named is_* are drawn as conditions.
func Tree(tree *domain.BehaviorTreeFile, lib *domain.Library, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Node names repeat inside a tree, so Mermaid IDs follow visit order.
	ids := make(map[*domain.Node]string)
	byName := make(map[string][]string)
	var parents []*domain.Node

	tree.Tree.Walk(func(n *domain.Node, depth int) bool {
		id := fmt.Sprintf("n%d", len(ids))
		ids[n] = id
		byName[n.Name] = append(byName[n.Name], id)

		opener, closer, label := shape(n, lib)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, escape(label), closer)

		if n.Error != "" {
			fmt.Fprintf(&sb, "    %s -. error .-> %s_err((\"%s\"))\n", id, id, escape(n.Error))
		}

		parents = parents[:depth]
		if depth > 0 {
			parent := parents[depth-1]
			if n.StepNumber > 0 {
				fmt.Fprintf(&sb, "    %s -- \"%d\" --> %s\n", ids[parent], n.StepNumber, id)
			} else {
				fmt.Fprintf(&sb, "    %s --> %s\n", ids[parent], id)
			}
		}
		parents = append(parents, n)
		return true
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Visited {
			if seen[name] {
				continue
			}
			seen[name] = true
			for _, id := range byName[name] {
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		for _, id := range byName[overlay.Failed] {
			fmt.Fprintf(&sb, "    class %s failed;\n", id)
		}
	}

	return sb.String()
}

// Workflow produces a Mermaid flowchart of a workflow's steps in order.
func Workflow(wf *domain.WorkflowFile) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	fmt.Fprintf(&sb, "    start((\"%s\"))\n", escape(wf.Title))

	prev := "start"
	for i, step := range wf.Workflow {
		id := fmt.Sprintf("s%d", i)
		label := fmt.Sprintf("%d. %s", i+1, step.Name)
		if step.Why != "" {
			label += "<br/><i>" + step.Why + "</i>"
		}
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", id, escape(label))
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		prev = id
	}
	return sb.String()
}

func shape(n *domain.Node, lib *domain.Library) (opener, closer, label string) {
	if !n.IsLeaf() {
		switch n.Sequence.Kind {
		case domain.SequenceFallback:
			return "{{", "}}", "? " + n.Name
		default:
			return "[/", "/]", "→ " + n.Name
		}
	}

	kind := domain.NodeTypeAction
	if lib != nil {
		if known, ok := lib.KnownNode(n.Name); ok {
			kind = known.Type
		}
	} else if strings.HasPrefix(n.Name, "is_") {
		kind = domain.NodeTypeCondition
	}

	switch kind {
	case domain.NodeTypeCondition:
		return "([", "])", n.Name
	case domain.NodeTypeError:
		return ">", "]", n.Name
	case domain.NodeTypeSequence:
		return "[[", "]]", n.Name
	default:
		return "[", "]", n.Name
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
