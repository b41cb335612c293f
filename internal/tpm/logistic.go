package tpm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// RegressionOptions tunes the logistic-regression solver
type RegressionOptions struct {
	// C is the inverse L2 regularisation strength; the intercept is not
	// penalised.
	C                 float64
	MaxIterations     int
	GradientTolerance float64
}

// DefaultRegressionOptions mirrors the customary lbfgs defaults
func DefaultRegressionOptions() RegressionOptions {
	return RegressionOptions{C: 1.0, MaxIterations: 100, GradientTolerance: 1e-4}
}

// LogisticRegression is an L2-regularised binary classifier fitted with
// L-BFGS. It minimises
//
//	0.5*||coef||^2 + C * sum_i w_i * (log(1+exp(z_i)) - y_i*z_i)
//
// with z_i = intercept + x_i . coef.
type LogisticRegression struct {
	RegressionOptions

	Coef      []float64
	Intercept float64

	Converged  bool
	Iterations int
	Status     string
}

// NewLogisticRegression creates an unfitted classifier
func NewLogisticRegression(opts RegressionOptions) *LogisticRegression {
	return &LogisticRegression{RegressionOptions: opts}
}

// Fit trains the classifier on X with labels y in {0,1}. weights may be
// nil for unit weights; a row with weight k counts as k identical samples.
func (lr *LogisticRegression) Fit(X mat.Matrix, y, weights []float64) error {
	rows, cols := X.Dims()
	if len(y) != rows {
		return fmt.Errorf("label count %d does not match %d rows", len(y), rows)
	}
	if weights == nil {
		weights = make([]float64, rows)
		floats.AddConst(1, weights)
	}
	if len(weights) != rows {
		return fmt.Errorf("weight count %d does not match %d rows", len(weights), rows)
	}
	if lr.C <= 0 {
		return fmt.Errorf("regularisation C must be positive, got %v", lr.C)
	}

	var pos, total float64
	for i := range y {
		if y[i] != 0 && y[i] != 1 {
			return fmt.Errorf("label %d is %v, expected 0 or 1", i, y[i])
		}
		pos += weights[i] * y[i]
		total += weights[i]
	}
	if total == 0 {
		return ErrNoTransitions
	}
	if pos == 0 || pos == total {
		return ErrSingleClass
	}

	xs := mat.DenseCopyOf(X)
	z := make([]float64, rows)

	// params[0] is the intercept, params[1:] the coefficients
	linear := func(params []float64) {
		for i := 0; i < rows; i++ {
			z[i] = params[0] + floats.Dot(xs.RawRowView(i), params[1:])
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			linear(params)
			var loss float64
			for i := 0; i < rows; i++ {
				if weights[i] == 0 {
					continue
				}
				loss += weights[i] * (softplus(z[i]) - y[i]*z[i])
			}
			coef := params[1:]
			return 0.5*floats.Dot(coef, coef) + lr.C*loss
		},
		Grad: func(grad, params []float64) {
			linear(params)
			for k := range grad {
				grad[k] = 0
			}
			for i := 0; i < rows; i++ {
				if weights[i] == 0 {
					continue
				}
				r := lr.C * weights[i] * (sigmoid(z[i]) - y[i])
				grad[0] += r
				floats.AddScaled(grad[1:], r, xs.RawRowView(i))
			}
			floats.Add(grad[1:], params[1:])
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: lr.GradientTolerance,
		MajorIterations:   lr.MaxIterations,
	}

	init := make([]float64, cols+1)
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("minimize: %w", err)
	}
	if floats.HasNaN(result.X) {
		return fmt.Errorf("minimize produced NaN parameters: %v", err)
	}

	lr.Intercept = result.X[0]
	lr.Coef = append(lr.Coef[:0], result.X[1:]...)
	lr.Iterations = result.Stats.MajorIterations
	switch result.Status {
	case optimize.GradientThreshold, optimize.FunctionConvergence, optimize.Success:
		lr.Converged = err == nil
	default:
		lr.Converged = false
	}
	lr.Status = result.Status.String()
	if err != nil {
		lr.Status = err.Error()
	}
	return nil
}

// PredictProba returns the probability that the label is 1 for features x
func (lr *LogisticRegression) PredictProba(x []float64) float64 {
	return sigmoid(lr.Intercept + floats.Dot(lr.Coef, x))
}

// ErrSingleClass is returned when the labels contain only one class
var ErrSingleClass = errors.New("labels contain a single class")

// ErrNoTransitions is returned when there is nothing to fit
var ErrNoTransitions = errors.New("no transitions to fit")

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
