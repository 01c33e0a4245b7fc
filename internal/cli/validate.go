package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor"
)

// Validate loads and checks the configured library, printing a summary.
func Validate(ctx context.Context, env *Env) error {
	lib, err := arbor.Load(ctx, env.Config.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Library is valid! ✅ %d modules, %d tools, %d known nodes, %d trees, %d workflows\n",
		len(lib.Modules().Content),
		len(lib.Tools().Content),
		len(lib.KnownNodes().Content),
		len(lib.Trees()),
		len(lib.Workflows()),
	)
	return nil
}
