package tpm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// Method names a TPM estimation strategy
type Method string

const (
	MethodDirect Method = "direct"
	MethodLogReg Method = "logreg"
)

var (
	// ErrUnknownMethod is returned for an unrecognized strategy name
	ErrUnknownMethod = errors.New("unrecognized modeling-strategy name")
	// ErrInteractionOrder is returned when the interaction order is out of range
	ErrInteractionOrder = errors.New("interaction order out of range")
)

// ParseMethod maps a strategy name onto a Method
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "direct", "empirical":
		return MethodDirect, nil
	case "logreg", "log_reg", "logistic":
		return MethodLogReg, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("method %q", name), ErrUnknownMethod)
}

// Result is a TPM together with its per-state observation counts
type Result struct {
	TPM              *mat.Dense
	StateCounts      []float64
	Method           Method
	Tau              int
	Alphabet         int
	InteractionOrder int
	// Models holds the per-channel classifiers of a logistic-regression TPM
	Models []*LogisticRegression
}

// Channels returns the number of channels (TPM columns)
func (r *Result) Channels() int {
	_, c := r.TPM.Dims()
	return c
}

// Options configures a Builder
type Options struct {
	Tau              int
	Alphabet         int
	InteractionOrder int
	MaxChannels      int
	Regression       RegressionOptions
	Logger           *slog.Logger
}

// DefaultOptions returns lag 1, binary data, full interaction expansion
func DefaultOptions() Options {
	return Options{
		Tau:         1,
		Alphabet:    2,
		MaxChannels: 20,
		Regression:  DefaultRegressionOptions(),
	}
}

// Builder turns trials of samples x channels into a TPM
type Builder interface {
	Build(ctx context.Context, trials []mat.Matrix) (*Result, error)
	Method() Method
}

// NewBuilder returns the Builder for method
func NewBuilder(method Method, opts Options) (Builder, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch method {
	case MethodDirect:
		return &directBuilder{opts: opts}, nil
	case MethodLogReg:
		if opts.Alphabet != 0 && opts.Alphabet != 2 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("logistic regression needs binary data, alphabet is %d", opts.Alphabet), nil)
		}
		return &logRegBuilder{opts: opts}, nil
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("method %q", method), ErrUnknownMethod)
}

type directBuilder struct {
	opts Options
}

func (b *directBuilder) Method() Method { return MethodDirect }

func (b *directBuilder) Build(ctx context.Context, trials []mat.Matrix) (*Result, error) {
	alphabet := b.opts.Alphabet
	if alphabet == 0 {
		alphabet = 2
	}
	if _, err := checkTrials(trials, b.opts.Tau, alphabet, b.opts.MaxChannels); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return BuildDirect(trials, b.opts.Tau, alphabet)
}

type logRegBuilder struct {
	opts Options
}

func (b *logRegBuilder) Method() Method { return MethodLogReg }

func (b *logRegBuilder) Build(ctx context.Context, trials []mat.Matrix) (*Result, error) {
	if _, err := checkTrials(trials, b.opts.Tau, 2, b.opts.MaxChannels); err != nil {
		return nil, err
	}
	return BuildLogReg(ctx, trials, b.opts.Tau, b.opts.InteractionOrder, b.opts.Regression, b.opts.Logger)
}
