package tpm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// BuildDirect builds a state-by-node TPM by counting transitions. For
// every trial and every sample i in [0, T-tau) it records which channels
// are on at i+tau given the state at i. Rows of states that never occur
// are set to 1/alphabet for every channel; their reported count stays 0.
func BuildDirect(trials []mat.Matrix, tau, alphabet int) (*Result, error) {
	if alphabet < 2 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("alphabet size must be at least 2, got %d", alphabet), nil)
	}
	n, err := checkTrials(trials, tau, alphabet, 0)
	if err != nil {
		return nil, err
	}

	nStates := NumStates(n, alphabet)
	on := make([]float64, nStates*n)
	counts := make([]float64, nStates)

	for t, tr := range trials {
		states, err := rowStates(tr, alphabet)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", t, err)
		}
		for i := 0; i+tau < len(states); i++ {
			s := states[i]
			counts[s]++
			for j := 0; j < n; j++ {
				if tr.At(i+tau, j) != 0 {
					on[s*n+j]++
				}
			}
		}
	}

	tpm := mat.NewDense(nStates, n, nil)
	uniform := 1 / float64(alphabet)
	for s := 0; s < nStates; s++ {
		if counts[s] == 0 {
			for j := 0; j < n; j++ {
				tpm.Set(s, j, uniform)
			}
			continue
		}
		for j := 0; j < n; j++ {
			tpm.Set(s, j, on[s*n+j]/counts[s])
		}
	}

	return &Result{
		TPM:         tpm,
		StateCounts: counts,
		Method:      MethodDirect,
		Tau:         tau,
		Alphabet:    alphabet,
	}, nil
}
