/*
Package arbor loads, validates and runs behavior-tree libraries for modular
lab automation rigs.

A library is a directory of YAML or JSON documents: the modules of the rig
(modules.yaml), the tools it can hold (tools.yaml), reusable leaf definitions
(nodes.yaml), one behavior tree per file under trees/ and one workflow per
file under workflows/. Loading a library checks every cross-reference
between these documents, so a Library that loads is a Library that can run.

# Concept

A behavior tree is made of internal nodes with a sequence of children and
leaves. A "children" sequence runs every child in order and stops at the
first non-success (AND); a "fallback" sequence tries children in order until
one succeeds (OR). Leaves resolve to known nodes and are executed by a
LeafExecutor supplied by the host: an in-process registry, allow-listed
commands, or module requests over Redis.

# Usage

	lib := registry.NewRegistry(registry.WithFallback(registry.DryRun(0)))

	eng, err := arbor.New("./library", lib)
	if err != nil {
		log.Fatal(err)
	}

	out, err := eng.RunTree(ctx, "get_tip")
	if err != nil {
		log.Fatal(err) // unknown tree
	}
	fmt.Println(out) // success, failure or cancelled

	report, err := eng.RunWorkflow(ctx, "Transfer sample")

Engine.Watch reloads the library when its files change; a library that no
longer validates is reported and the previous one keeps serving runs.
*/
package arbor
