// Package operations runs batches of channel sets.
//
// A Runner takes a loaded recording and a list of channel sets and, for
// each set and each condition of the recording, selects the set's
// channels, builds a TPM, computes phi for every state and writes one
// result bundle per set. Sets are processed in order and the first
// failure aborts the run; a cancelled context stops the run between
// sets.
//
//	runner, err := operations.NewRunner(operations.RunnerConfig{
//		Builder:    builder,
//		Calculator: phi.NewMIPCalculator(),
//		Writer:     results.NewWriter(layout, "", nil),
//		Logger:     logger,
//	})
//	report, err := runner.Run(ctx, dataset, sets)
//
// Progress is tracked for periodic log lines and for the status server.
package operations
