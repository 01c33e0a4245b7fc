package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeRunner is the surface of the execution engine used by drivers
// (workflow runner, HTTP adapter, CLI).
type TreeRunner interface {
	// RunTree executes the tree whose root node is named name.
	// The error is non-nil only when the tree does not exist.
	RunTree(ctx context.Context, name string) (domain.Outcome, error)

	// Library returns the library trees are resolved against.
	Library() *domain.Library
}
