package performance

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"phicli/internal/phi"
	"phicli/internal/shared/testutil"
	"phicli/internal/tpm"
)

var channelCounts = []int{3, 5, 7}

func trialsFor(tb testing.TB, channels int) []mat.Matrix {
	tb.Helper()
	ds := testutil.RandomDataset(tb, 42, channels, 2000, 4, 1)
	all := make([]int, channels)
	for i := range all {
		all[i] = i
	}
	trials, err := ds.Select(all, 0)
	require.NoError(tb, err)
	return trials
}

func BenchmarkBuildDirect(b *testing.B) {
	for _, n := range channelCounts {
		trials := trialsFor(b, n)
		b.Run(fmt.Sprintf("channels=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tpm.BuildDirect(trials, 1, 2); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBuildLogReg(b *testing.B) {
	for _, n := range channelCounts {
		trials := trialsFor(b, n)
		b.Run(fmt.Sprintf("channels=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tpm.BuildLogReg(context.Background(), trials, 1, 2, tpm.DefaultRegressionOptions(), nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkComputeAll(b *testing.B) {
	calc := phi.NewMIPCalculator()
	for _, n := range channelCounts {
		res, err := tpm.BuildDirect(trialsFor(b, n), 1, 2)
		require.NoError(b, err)

		for _, workers := range []int{1, 4} {
			b.Run(fmt.Sprintf("channels=%d/workers=%d", n, workers), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := phi.ComputeAll(context.Background(), calc, res.TPM, workers); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// Parallel and sequential phi must agree on realistic TPMs, not only on
// the small hand-built ones
func TestComputeAllParallelMatchesSequential(t *testing.T) {
	calc := phi.NewMIPCalculator()
	res, err := tpm.BuildLogReg(context.Background(), trialsFor(t, 5), 1, 2, tpm.DefaultRegressionOptions(), nil)
	require.NoError(t, err)

	seq, err := phi.ComputeAll(context.Background(), calc, res.TPM, 1)
	require.NoError(t, err)
	par, err := phi.ComputeAll(context.Background(), calc, res.TPM, 8)
	require.NoError(t, err)
	require.Equal(t, phi.Phis(seq), phi.Phis(par))
}
