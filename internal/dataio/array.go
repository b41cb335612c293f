package dataio

import (
	"fmt"
	"io"
	"strings"

	"github.com/sbinet/npyio"
)

// Array is a decoded n-dimensional array in C order
type Array struct {
	Data  []float64
	Shape []int
}

// Size is the product of the shape
func (a Array) Size() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// DecodeNPY reads one .npy stream. Integer, float and bool dtypes are
// converted to float64; Fortran-ordered arrays are rearranged to C order.
func DecodeNPY(r io.Reader) (Array, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return Array{}, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape := append([]int(nil), rd.Header.Descr.Shape...)
	arr := Array{Shape: shape}
	n := arr.Size()

	dtype := strings.TrimLeft(rd.Header.Descr.Type, "<>|=")
	switch dtype {
	case "b1":
		var raw []bool
		if err := rd.Read(&raw); err != nil {
			return Array{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		arr.Data = make([]float64, len(raw))
		for i, v := range raw {
			if v {
				arr.Data[i] = 1
			}
		}
	case "u1":
		arr.Data, err = readAs[uint8](rd, n)
	case "i1":
		arr.Data, err = readAs[int8](rd, n)
	case "i2":
		arr.Data, err = readAs[int16](rd, n)
	case "u2":
		arr.Data, err = readAs[uint16](rd, n)
	case "i4":
		arr.Data, err = readAs[int32](rd, n)
	case "u4":
		arr.Data, err = readAs[uint32](rd, n)
	case "i8":
		arr.Data, err = readAs[int64](rd, n)
	case "u8":
		arr.Data, err = readAs[uint64](rd, n)
	case "f4":
		arr.Data, err = readAs[float32](rd, n)
	case "f8":
		arr.Data, err = readAs[float64](rd, n)
	default:
		return Array{}, fmt.Errorf("unsupported npy dtype %q", rd.Header.Descr.Type)
	}
	if err != nil {
		return Array{}, err
	}

	if len(arr.Data) != n {
		return Array{}, fmt.Errorf("npy data has %d values, shape %v needs %d", len(arr.Data), shape, n)
	}
	if rd.Header.Descr.Fortran && len(shape) > 1 {
		arr.Data = fortranToC(arr.Data, shape)
	}
	return arr, nil
}

func readAs[T number](rd *npyio.Reader, n int) ([]float64, error) {
	raw := make([]T, 0, n)
	if err := rd.Read(&raw); err != nil {
		return nil, fmt.Errorf("failed to read npy data: %w", err)
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// fortranToC reorders column-major data into row-major order
func fortranToC(data []float64, shape []int) []float64 {
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		// c walks C order; compute the matching Fortran offset
		f, stride := 0, 1
		for k := 0; k < len(shape); k++ {
			f += idx[k] * stride
			stride *= shape[k]
		}
		out[c] = data[f]

		for k := len(shape) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
