package domain

import (
	"fmt"
	"sort"

	"github.com/aretw0/arbor/internal/librarykey"
)

// Bundle is the unvalidated, Library-shaped result of loading a library
// directory. It is handed to the validator and never used on its own.
type Bundle struct {
	Modules    ModuleFile
	Tools      ToolFile
	KnownNodes KnownNodesFile
	Trees      []BehaviorTreeFile
	Workflows  []WorkflowFile
}

// Library is the validated aggregate of all documents.
// It is read-only after construction and safe for concurrent use: it owns a
// private copy of its documents and every accessor returns a copy.
type Library struct {
	modules    ModuleFile
	tools      ToolFile
	knownNodes KnownNodesFile
	trees      []BehaviorTreeFile
	workflows  []WorkflowFile

	treeIndex     map[string]int
	workflowIndex map[string]int
}

// NewLibrary freezes a validated bundle into a Library. The bundle is
// copied, so later changes to b do not reach the Library. Only the
// validator holds a key; NewLibrary panics on any other.
func NewLibrary(key librarykey.Key, b *Bundle) *Library {
	if !key.Valid() {
		panic("domain: NewLibrary called without a validator key")
	}
	lib := &Library{
		modules:       b.Modules.Clone(),
		tools:         b.Tools.Clone(),
		knownNodes:    b.KnownNodes.Clone(),
		trees:         cloneSlice(b.Trees, BehaviorTreeFile.Clone),
		workflows:     cloneSlice(b.Workflows, WorkflowFile.Clone),
		treeIndex:     make(map[string]int, len(b.Trees)),
		workflowIndex: make(map[string]int, len(b.Workflows)),
	}
	for i := range lib.trees {
		lib.treeIndex[lib.trees[i].Name()] = i
	}
	for i := range lib.workflows {
		lib.workflowIndex[lib.workflows[i].Title] = i
	}
	return lib
}

// Modules returns a copy of the modules document.
func (l *Library) Modules() *ModuleFile {
	m := l.modules.Clone()
	return &m
}

// Tools returns a copy of the tools document.
func (l *Library) Tools() *ToolFile {
	t := l.tools.Clone()
	return &t
}

// KnownNodes returns a copy of the known-nodes document.
func (l *Library) KnownNodes() *KnownNodesFile {
	k := l.knownNodes.Clone()
	return &k
}

// Trees returns copies of the behavior trees in load order.
func (l *Library) Trees() []BehaviorTreeFile {
	return cloneSlice(l.trees, BehaviorTreeFile.Clone)
}

// Workflows returns copies of the workflows in load order.
func (l *Library) Workflows() []WorkflowFile {
	return cloneSlice(l.workflows, WorkflowFile.Clone)
}

// KnownNode looks up a known node by name.
func (l *Library) KnownNode(name string) (KnownNode, bool) {
	n, ok := l.knownNodes.Content[name]
	return n.Clone(), ok
}

// TreeByName returns a copy of the tree whose root node is named name.
func (l *Library) TreeByName(name string) (*BehaviorTreeFile, error) {
	i, ok := l.treeIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTreeNotFound, name)
	}
	t := l.trees[i].Clone()
	return &t, nil
}

// WorkflowByTitle returns a copy of the workflow with the given title.
func (l *Library) WorkflowByTitle(title string) (*WorkflowFile, error) {
	i, ok := l.workflowIndex[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, title)
	}
	w := l.workflows[i].Clone()
	return &w, nil
}

// TreeNames returns the tree identifiers in load order.
func (l *Library) TreeNames() []string {
	names := make([]string, len(l.trees))
	for i := range l.trees {
		names[i] = l.trees[i].Name()
	}
	return names
}

// ModuleNames returns the module names, sorted.
func (l *Library) ModuleNames() []string {
	return sortedKeys(l.modules.Content)
}

// ToolNames returns the tool names, sorted.
func (l *Library) ToolNames() []string {
	return sortedKeys(l.tools.Content)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
