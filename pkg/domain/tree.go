package domain

// BehaviorTreeFile is the document holding a single behavior tree.
// The root node's name is the tree identifier.
type BehaviorTreeFile struct {
	FileName     string   `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Title        string   `json:"title" yaml:"title" validate:"required"`
	Version      string   `json:"version" yaml:"version"`
	Description  string   `json:"description" yaml:"description"`
	Participants []string `json:"participant_modules" yaml:"participant_modules"`
	Tree         Node     `json:"tree" yaml:"tree"`
}

// Name returns the tree identifier.
func (t *BehaviorTreeFile) Name() string {
	return t.Tree.Name
}

// Leaves returns the names of the tree's leaves in execution order.
// A known node used twice appears twice.
func (t *BehaviorTreeFile) Leaves() []string {
	var leaves []string
	t.Tree.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n.Name)
		}
		return true
	})
	return leaves
}

// WorkflowFile is an ordered list of behavior trees to run in turn.
type WorkflowFile struct {
	FileName    string         `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Title       string         `json:"title" yaml:"title" validate:"required"`
	Description string         `json:"description" yaml:"description"`
	Version     string         `json:"version" yaml:"version"`
	Workflow    []WorkflowStep `json:"workflow" yaml:"workflow" validate:"dive"`
	Parameters  []Value        `json:"parameters" yaml:"parameters" validate:"dive"`
	ProcessTLDR string         `json:"process_tldr" yaml:"process_tldr"`
}

// WorkflowStep names the tree to run and why.
type WorkflowStep struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Why  string `json:"why" yaml:"why"`
}
