// Package tpm estimates state-by-node transition probability matrices from
// binarized recordings.
//
// A TPM has one row per system state and one column per channel; entry
// (s, j) is the probability that channel j is on tau samples after the
// system was observed in state s. States are indexed little-endian: the
// first channel varies fastest, so for two channels the rows are
// 00, 10, 01, 11.
//
// Two strategies are provided:
//
//   - BuildDirect counts observed transitions and normalises by the number
//     of times each state was seen. Unobserved states get a uniform row.
//   - BuildLogReg fits one logistic classifier per channel over the present
//     state (optionally expanded with interaction terms) and evaluates it
//     on every possible state, so unobserved rows are extrapolated.
//
// Both accept a list of trials; transitions never cross trial boundaries.
package tpm
