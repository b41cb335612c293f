package tpm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// MaxStates bounds the number of TPM rows any builder will allocate
const MaxStates = 1 << 30

// NumStates returns base^n, the number of rows of a TPM over n channels.
// The result is only meaningful when fitsStates(n, base) holds.
func NumStates(n, base int) int {
	states := 1
	for i := 0; i < n; i++ {
		states *= base
	}
	return states
}

// fitsStates reports whether base^n is at most MaxStates
func fitsStates(n, base int) bool {
	states := 1
	for i := 0; i < n; i++ {
		if states > MaxStates/base {
			return false
		}
		states *= base
	}
	return true
}

// StateToIndex encodes a state tuple as its little-endian index
func StateToIndex(state []int, base int) int {
	index := 0
	weight := 1
	for _, v := range state {
		index += v * weight
		weight *= base
	}
	return index
}

// IndexToState decodes a little-endian index into an n-channel state tuple
func IndexToState(index, n, base int) []int {
	state := make([]int, n)
	for i := 0; i < n; i++ {
		state[i] = index % base
		index /= base
	}
	return state
}

// rowStates computes the state index of every row of m, validating that
// each value is an integer symbol in [0, base).
func rowStates(m mat.Matrix, base int) ([]int, error) {
	rows, cols := m.Dims()
	states := make([]int, rows)
	for i := 0; i < rows; i++ {
		index := 0
		weight := 1
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v != math.Trunc(v) || v < 0 || v >= float64(base) {
				return nil, apperrors.NewValidationError(
					fmt.Sprintf("sample (%d, %d) = %v is not a symbol of a %d-letter alphabet", i, j, v, base), nil)
			}
			index += int(v) * weight
			weight *= base
		}
		states[i] = index
	}
	return states, nil
}

// checkTrials verifies that trials is non-empty, that every trial has the
// same channel count and that the state space fits MaxStates, and returns
// that count.
func checkTrials(trials []mat.Matrix, tau, base, maxChannels int) (int, error) {
	if tau < 1 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("tau must be at least 1, got %d", tau), nil)
	}
	if len(trials) == 0 {
		return 0, apperrors.NewValidationError("no trials supplied", nil)
	}

	_, n := trials[0].Dims()
	for i, tr := range trials {
		if _, c := tr.Dims(); c != n {
			return 0, apperrors.NewValidationError(
				fmt.Sprintf("trial %d has %d channels, expected %d", i, c, n), nil)
		}
	}
	if n == 0 {
		return 0, apperrors.NewValidationError("trials have no channels", nil)
	}
	if maxChannels > 0 && n > maxChannels {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("%d channels exceeds the limit of %d", n, maxChannels), nil)
	}
	if !fitsStates(n, base) {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("%d channels of a %d-letter alphabet exceed %d states", n, base, MaxStates), nil).
			WithContext("channels", n)
	}
	return n, nil
}
