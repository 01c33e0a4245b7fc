/*
Package runner drives workflows: it runs each step's behavior tree in order
and reports what happened.

A workflow step is a tree. The runner decides what a failing step means for
the rest of the workflow; by default the first step that does not succeed
ends the workflow. Cancellation always ends it.

# Usage

	r := runner.New(engine,
		runner.WithLogger(logger),
		runner.WithLocker(memory.NewLocker(), time.Minute),
	)

	report, err := r.Run(ctx, "Transfer sample")
	if err != nil {
		log.Fatal(err) // unknown workflow
	}
	fmt.Println(report.Outcome)
*/
package runner
