package phi

import (
	"context"
	"fmt"
	"math"
	"math/bits"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// Result is the phi value of one system state
type Result struct {
	State int
	Phi   float64
	// MIP is the bitmask of the nodes on one side of the minimum
	// information partition; 0 when the system has a single node.
	MIP uint64
}

// Calculator computes phi for one state of a TPM
type Calculator interface {
	Compute(ctx context.Context, tpm mat.Matrix, state int) (Result, error)
}

// MIPCalculator searches every bipartition for the minimum information
// partition
type MIPCalculator struct{}

// NewMIPCalculator returns the built-in calculator
func NewMIPCalculator() *MIPCalculator {
	return &MIPCalculator{}
}

// Compute implements Calculator
func (c *MIPCalculator) Compute(ctx context.Context, tpm mat.Matrix, state int) (Result, error) {
	rows, n := tpm.Dims()
	if n < 1 || n > 62 || rows != 1<<uint(n) {
		return Result{}, apperrors.NewValidationError(
			fmt.Sprintf("tpm of %dx%d is not state-by-node over binary nodes", rows, n), nil)
	}
	if state < 0 || state >= rows {
		return Result{}, apperrors.NewValidationError(fmt.Sprintf("state %d outside [0, %d)", state, rows), nil)
	}

	res := Result{State: state}
	if n < 2 {
		return res, nil
	}

	all := uint64(1)<<uint(n) - 1
	best := math.Inf(1)
	// Node n-1 is always on the B side so each bipartition is visited once.
	for a := uint64(1); a < uint64(1)<<uint(n-1); a++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		b := all &^ a
		loss := cutLoss(tpm, n, uint64(state), a, b)

		smaller := bits.OnesCount64(a)
		if other := bits.OnesCount64(b); other < smaller {
			smaller = other
		}
		normalised := loss / float64(smaller)
		if normalised < best {
			best = normalised
			res.Phi = loss
			res.MIP = a
		}
	}

	// Round-off can leave tiny negative sums on a disconnected system
	if res.Phi < 0 {
		res.Phi = 0
	}
	return res, nil
}

// cutLoss returns the information lost, in bits, when the connections
// between parts a and b are cut with the system in state s.
func cutLoss(tpm mat.Matrix, n int, s, a, b uint64) float64 {
	var loss float64
	for j := 0; j < n; j++ {
		// node j keeps the inputs of its own part, the other part is noised
		noised := b
		if b&(1<<uint(j)) != 0 {
			noised = a
		}
		p := tpm.At(int(s), j)
		q := marginal(tpm, j, s, noised)
		loss += bernoulliKL(p, q)
	}
	return loss
}

// marginal averages node j's on-probability over every assignment of the
// nodes in free, with the remaining nodes held at s.
func marginal(tpm mat.Matrix, j int, s, free uint64) float64 {
	base := s &^ free
	var sum float64
	var count int
	sub := uint64(0)
	for {
		sum += tpm.At(int(base|sub), j)
		count++
		if sub == free {
			break
		}
		sub = (sub - free) & free
	}
	return sum / float64(count)
}

// bernoulliKL is KL(Bern(p) || Bern(q)) in bits with 0*log(0) = 0
func bernoulliKL(p, q float64) float64 {
	var kl float64
	if p > 0 {
		kl += p * math.Log2(p/q)
	}
	if p < 1 {
		kl += (1 - p) * math.Log2((1-p)/(1-q))
	}
	return kl
}

// Nodes validates a binary state-by-node TPM and returns its node count
func Nodes(tpm mat.Matrix) (int, error) {
	rows, cols := tpm.Dims()
	if cols < 1 || cols > 62 || rows != 1<<uint(cols) {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("tpm of %dx%d is not state-by-node over binary nodes", rows, cols), nil)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := tpm.At(i, j); v < 0 || v > 1 || math.IsNaN(v) {
				return 0, apperrors.NewValidationError(
					fmt.Sprintf("tpm entry (%d, %d) = %v is not a probability", i, j, v), nil)
			}
		}
	}
	return cols, nil
}

// ComputeAll computes phi for every state of tpm. workers bounds how many
// states are evaluated at once; 1 runs them in order.
func ComputeAll(ctx context.Context, calc Calculator, tpm mat.Matrix, workers int) ([]Result, error) {
	if _, err := Nodes(tpm); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	rows, _ := tpm.Dims()
	results := make([]Result, rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s := 0; s < rows; s++ {
		s := s
		g.Go(func() error {
			r, err := calc.Compute(gctx, tpm, s)
			if err != nil {
				return fmt.Errorf("state %d: %w", s, err)
			}
			results[s] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Phis extracts the phi values in state order
func Phis(results []Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Phi
	}
	return out
}
