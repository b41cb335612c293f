package dataio

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "phicli/internal/errors"
)

// Load reads the recording at path. key selects an .npz member and is
// ignored for other formats; an empty key takes the first member.
func Load(path, key string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))

	slog.Debug("Loading recording",
		slog.String("path", path),
		slog.String("format", ext),
		slog.String("key", key))

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("data file " + path)
		}
		return nil, apperrors.NewStorageError("failed to stat data file", err)
	}

	var (
		arr Array
		err error
	)
	switch ext {
	case ".npy":
		arr, err = loadNPY(path)
	case ".npz":
		arr, err = loadNPZ(path, key)
	case ".csv":
		arr, err = loadCSV(path)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported data format %q", ext), nil)
	}
	if err != nil {
		return nil, err
	}

	ds, err := FromArray(arr)
	if err != nil {
		return nil, err
	}
	ds.Source = path

	slog.Info("Recording loaded",
		slog.String("path", path),
		slog.Int("channels", ds.Channels),
		slog.Int("samples", ds.Samples),
		slog.Int("trials", ds.Trials),
		slog.Int("conditions", ds.Conditions))

	return ds, nil
}

func loadNPY(path string) (Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return Array{}, apperrors.NewStorageError("failed to open npy file", err)
	}
	defer f.Close()

	arr, err := DecodeNPY(f)
	if err != nil {
		return Array{}, apperrors.NewParsingError("invalid npy file "+path, err)
	}
	return arr, nil
}

func loadNPZ(path, key string) (Array, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Array{}, apperrors.NewParsingError("invalid npz archive "+path, err)
	}
	defer zr.Close()

	member, err := findMember(&zr.Reader, key)
	if err != nil {
		return Array{}, err
	}

	rc, err := member.Open()
	if err != nil {
		return Array{}, apperrors.NewStorageError("failed to open npz member", err)
	}
	defer rc.Close()

	arr, err := DecodeNPY(rc)
	if err != nil {
		return Array{}, apperrors.NewParsingError("invalid npz member "+member.Name, err)
	}
	return arr, nil
}

// findMember resolves key against the archive's .npy members. The key may
// be given with or without the .npy extension.
func findMember(zr *zip.Reader, key string) (*zip.File, error) {
	var names []string
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		name := strings.TrimSuffix(f.Name, ".npy")
		if key == "" || key == name || key == f.Name {
			return f, nil
		}
		names = append(names, name)
	}

	if key == "" {
		return nil, apperrors.NewValidationError("npz archive holds no arrays", nil)
	}
	return nil, apperrors.NewNotFoundError("npz member "+key).
		WithContext("available", strings.Join(names, ","))
}

func loadCSV(path string) (Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return Array{}, apperrors.NewStorageError("failed to open csv file", err)
	}
	defer f.Close()

	arr, err := DecodeCSV(f)
	if err != nil {
		return Array{}, apperrors.NewParsingError("invalid csv file "+path, err)
	}
	return arr, nil
}

// DecodeCSV reads samples-by-channels rows and returns them transposed to
// a (channels, samples) array. A first row that is not numeric is taken
// as a header.
func DecodeCSV(r io.Reader) (Array, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Array{}, err
	}
	if len(records) > 0 && !numericRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return Array{}, fmt.Errorf("no sample rows")
	}

	nChannels := len(records[0])
	nSamples := len(records)
	data := make([]float64, nChannels*nSamples)
	for t, rec := range records {
		for ch, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Array{}, fmt.Errorf("row %d column %d: %w", t+1, ch+1, err)
			}
			data[ch*nSamples+t] = v
		}
	}
	return Array{Data: data, Shape: []int{nChannels, nSamples}}, nil
}

func numericRow(rec []string) bool {
	for _, field := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return false
		}
	}
	return true
}
