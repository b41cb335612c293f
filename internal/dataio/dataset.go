package dataio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

// Dataset is a recording of shape (channels, samples, trials, conditions)
type Dataset struct {
	Channels   int
	Samples    int
	Trials     int
	Conditions int
	Source     string

	data []float64
}

// FromArray wraps a 2-, 3- or 4-dimensional array. Missing trailing
// dimensions are treated as length one.
func FromArray(arr Array) (*Dataset, error) {
	if len(arr.Shape) < 2 || len(arr.Shape) > 4 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("data must have 2 to 4 dimensions, got shape %v", arr.Shape), nil)
	}
	if len(arr.Data) != arr.Size() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("data has %d values but shape %v", len(arr.Data), arr.Shape), nil)
	}

	dims := [4]int{1, 1, 1, 1}
	copy(dims[:], arr.Shape)
	for i, d := range dims {
		if d == 0 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("dimension %d of shape %v is empty", i, arr.Shape), nil)
		}
	}

	return &Dataset{
		Channels:   dims[0],
		Samples:    dims[1],
		Trials:     dims[2],
		Conditions: dims[3],
		data:       arr.Data,
	}, nil
}

// At returns one value
func (d *Dataset) At(channel, sample, trial, condition int) float64 {
	return d.data[((channel*d.Samples+sample)*d.Trials+trial)*d.Conditions+condition]
}

// Select extracts the given channels of one condition as one
// samples x len(channels) matrix per trial, in the order the channels
// are listed.
func (d *Dataset) Select(channels []int, condition int) ([]mat.Matrix, error) {
	if condition < 0 || condition >= d.Conditions {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("condition %d out of range [0, %d)", condition, d.Conditions), nil)
	}
	if len(channels) == 0 {
		return nil, apperrors.NewValidationError("no channels selected", nil)
	}
	for _, ch := range channels {
		if ch < 0 || ch >= d.Channels {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("channel %d out of range [0, %d)", ch, d.Channels), nil)
		}
	}

	trials := make([]mat.Matrix, d.Trials)
	for tr := 0; tr < d.Trials; tr++ {
		m := mat.NewDense(d.Samples, len(channels), nil)
		for j, ch := range channels {
			for t := 0; t < d.Samples; t++ {
				m.Set(t, j, d.At(ch, t, tr, condition))
			}
		}
		trials[tr] = m
	}
	return trials, nil
}
