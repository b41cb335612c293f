// Package phi computes a state-dependent integrated-information value from
// a binary state-by-node TPM.
//
// Calculator is the extension point; MIPCalculator is the built-in measure.
// For a system state s and a bipartition (A, B) of the nodes, every node
// keeps its own part's inputs fixed at s while the inputs coming from the
// other part are replaced by their uniform marginal. The information lost
// by the cut is the summed Bernoulli KL divergence, in bits, between the
// intact and the cut on-probabilities of each node. The minimum information
// partition minimises that loss normalised by the size of the smaller
// part, and phi is the unnormalised loss across it. A single node, or a
// system whose parts do not influence each other, has phi = 0.
package phi
