package tpm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// BuildLogReg builds a state-by-node TPM from one logistic classifier per
// channel. The classifiers are trained on the pooled (present, next) pairs
// of all trials, with the present state expanded by InteractionTerms(n,
// order), and then evaluated on every one of the 2^n states. StateCounts
// holds how often each state occurs over all pooled samples and is
// diagnostic only.
func BuildLogReg(ctx context.Context, trials []mat.Matrix, tau, order int, opts RegressionOptions, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	n, err := checkTrials(trials, tau, 2, 0)
	if err != nil {
		return nil, err
	}
	terms, err := InteractionTerms(n, order)
	if err != nil {
		return nil, err
	}

	nStates := NumStates(n, 2)
	counts := make([]float64, nStates)
	for t, tr := range trials {
		states, err := rowStates(tr, 2)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", t, err)
		}
		for _, s := range states {
			counts[s]++
		}
	}

	presents, nexts := PoolTransitions(trials, tau)
	if presents == nil {
		return nil, apperrors.NewValidationError("no transitions: every trial is shorter than tau+1 samples", ErrNoTransitions)
	}

	// The pooled log-likelihood only depends on how often each distinct
	// present state was followed by an on or off channel, so the fit runs
	// on one weighted row pair per observed state.
	presentStates, _ := rowStates(presents, 2)
	seen := make([]float64, nStates)
	onNext := make([]float64, nStates*n)
	for r, s := range presentStates {
		seen[s]++
		for j := 0; j < n; j++ {
			if nexts.At(r, j) != 0 {
				onNext[s*n+j]++
			}
		}
	}

	var observed []int
	for s := 0; s < nStates; s++ {
		if seen[s] > 0 {
			observed = append(observed, s)
		}
	}

	X := mat.NewDense(2*len(observed), len(terms), nil)
	y := make([]float64, 2*len(observed))
	state := make([]float64, n)
	for k, s := range observed {
		stateFloats(state, s)
		designRow(X.RawRowView(2*k), state, terms)
		designRow(X.RawRowView(2*k+1), state, terms)
		y[2*k] = 1
	}

	models := make([]*LogisticRegression, n)
	weights := make([]float64, 2*len(observed))
	for j := 0; j < n; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for k, s := range observed {
			weights[2*k] = onNext[s*n+j]
			weights[2*k+1] = seen[s] - onNext[s*n+j]
		}

		model := NewLogisticRegression(opts)
		if err := model.Fit(X, y, weights); err != nil {
			if errors.Is(err, ErrSingleClass) {
				return nil, apperrors.NewValidationError(
					fmt.Sprintf("channel %d never changes class at lag %d", j, tau), err).
					WithContext("channel", j)
			}
			return nil, apperrors.NewComputeError(fmt.Sprintf("fit classifier for channel %d", j), err)
		}
		if !model.Converged {
			logger.WarnContext(ctx, "logistic regression did not converge",
				slog.Int("channel", j),
				slog.Int("iterations", model.Iterations),
				slog.String("status", model.Status))
		}
		models[j] = model
	}

	tpm := mat.NewDense(nStates, n, nil)
	features := make([]float64, len(terms))
	for s := 0; s < nStates; s++ {
		stateFloats(state, s)
		designRow(features, state, terms)
		for j, model := range models {
			tpm.Set(s, j, model.PredictProba(features))
		}
	}

	logger.DebugContext(ctx, "logistic regression tpm built",
		slog.Int("channels", n),
		slog.Int("terms", len(terms)),
		slog.Int("observed_states", len(observed)),
		slog.Int("transitions", len(presentStates)))

	return &Result{
		TPM:              tpm,
		StateCounts:      counts,
		Method:           MethodLogReg,
		Tau:              tau,
		Alphabet:         2,
		InteractionOrder: order,
		Models:           models,
	}, nil
}

// stateFloats decodes binary state s into dst
func stateFloats(dst []float64, s int) {
	for i := range dst {
		dst[i] = float64(s & 1)
		s >>= 1
	}
}
