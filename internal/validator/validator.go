// Package validator proves the referential consistency of a loaded bundle
// and freezes it into a domain.Library.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/internal/librarykey"
	"github.com/aretw0/arbor/pkg/domain"
	"golang.org/x/mod/semver"
)

// Validate checks every cross-document reference of b and returns the
// validated Library. It is pure and stops at the first violation.
//
// Checks run in a fixed order: document versions, known-node messaging
// modules, tool pick-up references, trees, workflows.
func Validate(b *domain.Bundle) (*domain.Library, error) {
	checks := []func(*domain.Bundle) error{
		checkVersions,
		checkKnownNodes,
		checkTools,
		checkTrees,
		checkWorkflows,
	}
	for _, check := range checks {
		if err := check(b); err != nil {
			return nil, err
		}
	}
	return domain.NewLibrary(librarykey.Grant(), b), nil
}

// ValidVersion reports whether v is a strict MAJOR.MINOR.PATCH semantic
// version, optionally with pre-release and build metadata. A leading "v" is
// not accepted and neither are the shorthand forms "1" or "1.2".
func ValidVersion(v string) bool {
	if v == "" || strings.HasPrefix(v, "v") {
		return false
	}
	sv := "v" + v
	if !semver.IsValid(sv) {
		return false
	}
	// Canonical expands shorthands, so the core must match verbatim.
	core, _, _ := strings.Cut(strings.TrimPrefix(sv, "v"), "-")
	core, _, _ = strings.Cut(core, "+")
	canonical := strings.TrimPrefix(semver.Canonical(sv), "v")
	canonicalCore, _, _ := strings.Cut(canonical, "-")
	return core == canonicalCore
}

func checkVersions(b *domain.Bundle) error {
	docs := []struct {
		file, version string
	}{
		{b.Modules.FileName, b.Modules.Version},
		{b.Tools.FileName, b.Tools.Version},
		{b.KnownNodes.FileName, b.KnownNodes.Version},
	}
	for _, d := range docs {
		if !ValidVersion(d.version) {
			return &domain.ValidationError{
				Kind:     domain.ErrInvalidVersion,
				Document: d.file,
				Name:     d.version,
				Detail:   "expected MAJOR.MINOR.PATCH",
			}
		}
	}
	return nil
}

func checkTools(b *domain.Bundle) error {
	for _, key := range sortedKeys(b.Tools.Content) {
		tool := b.Tools.Content[key]
		if tool.PickUp == "" {
			continue
		}
		if _, ok := b.Tools.Content[tool.PickUp]; !ok {
			return &domain.ValidationError{
				Kind:     domain.ErrUnknownToolReference,
				Document: b.Tools.FileName,
				Name:     tool.PickUp,
				Detail:   fmt.Sprintf("picked up by tool %q", key),
			}
		}
	}
	return nil
}

func checkKnownNodes(b *domain.Bundle) error {
	for _, name := range sortedKeys(b.KnownNodes.Content) {
		node := b.KnownNodes.Content[name]
		if node.Messaging == nil {
			continue
		}
		for _, module := range node.Messaging.Modules {
			_, isModule := b.Modules.Content[module]
			_, isTool := b.Tools.Content[module]
			if !isModule && !isTool {
				return &domain.ValidationError{
					Kind:     domain.ErrUnknownModuleReference,
					Document: b.KnownNodes.FileName,
					Name:     module,
					Detail:   fmt.Sprintf("messaged by known node %q", name),
				}
			}
		}
	}
	return nil
}

func checkTrees(b *domain.Bundle) error {
	seen := make(map[string]string, len(b.Trees))
	for i := range b.Trees {
		tree := &b.Trees[i]
		name := tree.Name()

		if _, ok := b.KnownNodes.Content[name]; ok {
			return &domain.ValidationError{
				Kind:     domain.ErrReservedTreeName,
				Document: tree.FileName,
				Name:     name,
			}
		}
		if first, ok := seen[name]; ok {
			return &domain.ValidationError{
				Kind:     domain.ErrDuplicateTreeName,
				Document: tree.FileName,
				Name:     name,
				Detail:   "first defined in " + first,
			}
		}
		seen[name] = tree.FileName

		for _, p := range tree.Participants {
			if _, ok := b.Modules.Content[p]; !ok {
				return &domain.ValidationError{
					Kind:     domain.ErrUnknownParticipant,
					Document: tree.FileName,
					Name:     p,
				}
			}
		}

		if err := checkNode(b, tree, &tree.Tree); err != nil {
			return err
		}
	}
	return nil
}

// checkNode walks the tree depth-first in document order. Children and
// fallback sequences are treated alike; only leaves are resolved.
func checkNode(b *domain.Bundle, tree *domain.BehaviorTreeFile, n *domain.Node) error {
	if n.IsLeaf() {
		if _, ok := b.KnownNodes.Content[n.Name]; !ok {
			return &domain.ValidationError{
				Kind:     domain.ErrUnknownLeafNode,
				Document: tree.FileName,
				Name:     n.Name,
				Detail:   fmt.Sprintf("step %d of tree %q", n.StepNumber, tree.Name()),
			}
		}
		return nil
	}
	for i := range n.Sequence.Nodes {
		if err := checkNode(b, tree, &n.Sequence.Nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkWorkflows(b *domain.Bundle) error {
	trees := make(map[string]struct{}, len(b.Trees))
	for i := range b.Trees {
		trees[b.Trees[i].Name()] = struct{}{}
	}

	seen := make(map[string]string, len(b.Workflows))
	for i := range b.Workflows {
		wf := &b.Workflows[i]
		if first, ok := seen[wf.Title]; ok {
			return &domain.ValidationError{
				Kind:     domain.ErrDuplicateWorkflow,
				Document: wf.FileName,
				Name:     wf.Title,
				Detail:   "first defined in " + first,
			}
		}
		seen[wf.Title] = wf.FileName

		for n, step := range wf.Workflow {
			if _, ok := trees[step.Name]; !ok {
				return &domain.ValidationError{
					Kind:     domain.ErrUnknownWorkflowStep,
					Document: wf.FileName,
					Name:     step.Name,
					Detail:   fmt.Sprintf("step %d of workflow %q", n+1, wf.Title),
				}
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
