package tpm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"

	apperrors "phicli/internal/errors"
)

// InteractionTerms lists the channel combinations that make up the design
// matrix columns, grouped by degree and in lexicographic order within a
// degree. order 0 expands every interaction up to all n channels, order 1
// keeps the raw channels only and order k >= 2 adds products of up to k
// channels. No intercept term is produced.
func InteractionTerms(n, order int) ([][]int, error) {
	if order < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("interaction order must not be negative, got %d", order), ErrInteractionOrder)
	}
	if order > n {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("interaction order %d exceeds channel count %d", order, n), ErrInteractionOrder)
	}

	maxDegree := order
	if order == 0 {
		maxDegree = n
	}

	var terms [][]int
	for degree := 1; degree <= maxDegree; degree++ {
		terms = append(terms, combin.Combinations(n, degree)...)
	}
	return terms, nil
}

// designRow writes the expanded features of one present state into dst
func designRow(dst []float64, state []float64, terms [][]int) {
	for c, term := range terms {
		v := 1.0
		for _, ch := range term {
			v *= state[ch]
			if v == 0 {
				break
			}
		}
		dst[c] = v
	}
}

// DesignMatrix expands every row of presents through terms
func DesignMatrix(presents mat.Matrix, terms [][]int) *mat.Dense {
	rows, cols := presents.Dims()
	out := mat.NewDense(rows, len(terms), nil)
	state := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(state, i, presents)
		designRow(out.RawRowView(i), state, terms)
	}
	return out
}

// PoolTransitions stacks the (present, next) pairs of all trials. Row r of
// presents is sample t of some trial and row r of nexts is sample t+tau of
// the same trial. Trials shorter than tau+1 samples contribute nothing.
func PoolTransitions(trials []mat.Matrix, tau int) (presents, nexts *mat.Dense) {
	total := 0
	n := 0
	for _, tr := range trials {
		rows, cols := tr.Dims()
		n = cols
		if rows > tau {
			total += rows - tau
		}
	}
	if total == 0 {
		return nil, nil
	}

	presents = mat.NewDense(total, n, nil)
	nexts = mat.NewDense(total, n, nil)
	r := 0
	for _, tr := range trials {
		rows, _ := tr.Dims()
		for t := 0; t+tau < rows; t++ {
			for j := 0; j < n; j++ {
				presents.Set(r, j, tr.At(t, j))
				nexts.Set(r, j, tr.At(t+tau, j))
			}
			r++
		}
	}
	return presents, nexts
}
