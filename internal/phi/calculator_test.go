package phi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// fromRule builds a deterministic binary TPM over n nodes where node j is
// on after state s when rule(s, j) is true.
func fromRule(n int, rule func(s, j int) bool) *mat.Dense {
	tpm := mat.NewDense(1<<uint(n), n, nil)
	for s := 0; s < 1<<uint(n); s++ {
		for j := 0; j < n; j++ {
			if rule(s, j) {
				tpm.Set(s, j, 1)
			}
		}
	}
	return tpm
}

func bit(s, j int) bool { return s&(1<<uint(j)) != 0 }

func TestMIPCalculator(t *testing.T) {
	ctx := context.Background()
	calc := NewMIPCalculator()

	t.Run("single node has no partition", func(t *testing.T) {
		tpm := mat.NewDense(2, 1, []float64{0.3, 0.9})
		res, err := calc.Compute(ctx, tpm, 1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Phi)
		assert.Equal(t, uint64(0), res.MIP)
	})

	t.Run("self loops are not integrated", func(t *testing.T) {
		tpm := fromRule(3, func(s, j int) bool { return bit(s, j) })
		for s := 0; s < 8; s++ {
			res, err := calc.Compute(ctx, tpm, s)
			require.NoError(t, err)
			assert.InDelta(t, 0.0, res.Phi, 1e-12, "state %d", s)
		}
	})

	t.Run("swap network loses one bit per node", func(t *testing.T) {
		tpm := fromRule(2, func(s, j int) bool { return bit(s, 1-j) })
		res, err := calc.Compute(ctx, tpm, 0)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, res.Phi, 1e-12)
		assert.Equal(t, uint64(1), res.MIP)
	})

	t.Run("maximum entropy tpm", func(t *testing.T) {
		data := make([]float64, 8*3)
		for i := range data {
			data[i] = 0.5
		}
		res, err := calc.Compute(ctx, mat.NewDense(8, 3, data), 5)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Phi)
	})

	t.Run("weakest link is chosen", func(t *testing.T) {
		// nodes 0 and 1 copy each other, node 2 copies itself
		tpm := fromRule(3, func(s, j int) bool {
			switch j {
			case 0:
				return bit(s, 1)
			case 1:
				return bit(s, 0)
			}
			return bit(s, 2)
		})
		res, err := calc.Compute(ctx, tpm, 3)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, res.Phi, 1e-12)
		assert.Equal(t, uint64(3), res.MIP)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := calc.Compute(ctx, mat.NewDense(3, 2, nil), 0)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

		_, err = calc.Compute(ctx, mat.NewDense(4, 2, nil), 4)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})
}

func TestNodes(t *testing.T) {
	n, err := Nodes(mat.NewDense(8, 3, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bad := mat.NewDense(2, 1, []float64{0.5, 1.5})
	_, err = Nodes(bad)
	assert.Error(t, err)
}

func TestComputeAll(t *testing.T) {
	ctx := context.Background()
	tpm := fromRule(3, func(s, j int) bool { return bit(s, (j+1)%3) })

	sequential, err := ComputeAll(ctx, NewMIPCalculator(), tpm, 1)
	require.NoError(t, err)
	require.Len(t, sequential, 8)

	parallel, err := ComputeAll(ctx, NewMIPCalculator(), tpm, 4)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)

	for s, r := range sequential {
		assert.Equal(t, s, r.State)
		assert.Greater(t, r.Phi, 0.0)
	}
	assert.Len(t, Phis(sequential), 8)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ComputeAll(cctx, NewMIPCalculator(), tpm, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
