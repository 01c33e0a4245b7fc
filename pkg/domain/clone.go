package domain

// Deep copies handed out by Library, so callers never reach the validated
// documents.

func cloneSlice[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = clone(v)
	}
	return out
}

func cloneMap[V any](m map[string]V, clone func(V) V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func same[T any](v T) T { return v }

// Clone returns a deep copy of the document.
func (f ModuleFile) Clone() ModuleFile {
	f.Content = cloneMap(f.Content, Module.Clone)
	return f
}

// Clone returns a deep copy of the module.
func (m Module) Clone() Module {
	m.API.Variables = cloneMap(m.API.Variables, same[string])
	m.API.Services = cloneMap(m.API.Services, func(s Service) Service {
		if s == nil {
			return nil
		}
		out := make(Service, len(s))
		for verb, req := range s {
			req.Parameters = cloneSlice(req.Parameters, ValueSchema.Clone)
			req.Response = cloneSlice(req.Response, ValueSchema.Clone)
			out[verb] = req
		}
		return out
	})
	return m
}

// Clone returns a deep copy of the value schema.
func (v ValueSchema) Clone() ValueSchema {
	if v.Unit != nil {
		u := *v.Unit
		v.Unit = &u
	}
	return v
}

// Clone returns a deep copy of the document.
func (f ToolFile) Clone() ToolFile {
	f.Content = cloneMap(f.Content, func(t Tool) Tool {
		t.Variants = cloneSlice(t.Variants, same[Variant])
		return t
	})
	return f
}

// Clone returns a deep copy of the document.
func (f KnownNodesFile) Clone() KnownNodesFile {
	f.Content = cloneMap(f.Content, KnownNode.Clone)
	return f
}

// Clone returns a deep copy of the known node.
func (k KnownNode) Clone() KnownNode {
	if k.Messaging != nil {
		m := *k.Messaging
		m.Modules = cloneSlice(m.Modules, same[string])
		k.Messaging = &m
	}
	return k
}

// Clone returns a deep copy of the node and its descendants.
func (n Node) Clone() Node {
	if n.Sequence != nil {
		s := *n.Sequence
		s.Nodes = cloneSlice(s.Nodes, Node.Clone)
		n.Sequence = &s
	}
	return n
}

// Clone returns a deep copy of the tree document.
func (t BehaviorTreeFile) Clone() BehaviorTreeFile {
	t.Participants = cloneSlice(t.Participants, same[string])
	t.Tree = t.Tree.Clone()
	return t
}

// Clone returns a deep copy of the workflow document.
func (w WorkflowFile) Clone() WorkflowFile {
	w.Workflow = cloneSlice(w.Workflow, same[WorkflowStep])
	w.Parameters = cloneSlice(w.Parameters, func(v Value) Value {
		v.ValueSchema = v.ValueSchema.Clone()
		return v
	})
	return w
}
