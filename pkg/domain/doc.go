/*
Package domain contains the document model and execution values of the Arbor engine.

It defines the five document kinds that make up a library (modules, tools, known
nodes, behavior trees and workflows), the validated Library aggregate, and the
Outcome values produced when a tree runs. This package is kept pure and free of
I/O, following Hexagonal Architecture principles.

# Key Entities

  - ModuleFile / ToolFile: the addressable subsystems of the rig and their APIs.
  - KnownNodesFile: reusable leaf definitions referenced by name from trees.
  - BehaviorTreeFile: a tree of Nodes; internal nodes carry a Sequence
    (children = AND, fallback = OR), leaves resolve to a KnownNode.
  - WorkflowFile: an ordered list of tree names.
  - Library: the validated, read-only aggregate of all of the above.
  - Outcome: Success, Failure or Cancelled, the result of running a node.
*/
package domain
