package testutil

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"phicli/internal/dataio"
)

// Trial builds a samples x channels matrix from rows of 0/1 values
func Trial(rows ...[]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}

// CycleTrial walks the 2-channel states 00 -> 10 -> 01 -> 11 -> 00 for n
// samples, visiting every state and transition equally often.
func CycleTrial(n int) *mat.Dense {
	cycle := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	m := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		m.SetRow(i, cycle[i%len(cycle)])
	}
	return m
}

// RandomDataset returns a reproducible binary recording of shape
// (channels, samples, trials, conditions)
func RandomDataset(tb testing.TB, seed int64, channels, samples, trials, conditions int) *dataio.Dataset {
	tb.Helper()

	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, channels*samples*trials*conditions)
	for i := range data {
		if rng.Float64() < 0.5 {
			data[i] = 1
		}
	}

	ds, err := dataio.FromArray(dataio.Array{
		Data:  data,
		Shape: []int{channels, samples, trials, conditions},
	})
	if err != nil {
		tb.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}
