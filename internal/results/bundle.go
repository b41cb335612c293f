package results

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"phicli/internal/dataio"
	apperrors "phicli/internal/errors"
)

// Member names inside a bundle
const (
	memberMeta        = "meta.json"
	memberStatePhis   = "state_phis.npy"
	memberStateCounts = "state_counters.npy"
	memberMIPs        = "mips.npy"
	memberTPMPrefix   = "tpm_c"
)

// Meta describes how a bundle was produced
type Meta struct {
	Format           string    `json:"format"`
	SetID            int       `json:"set_id"`
	Channels         []int     `json:"channels"`
	Method           string    `json:"method"`
	Tau              int       `json:"tau"`
	InteractionOrder int       `json:"interaction_order"`
	Alphabet         int       `json:"alphabet"`
	Samples          int       `json:"samples"`
	Trials           int       `json:"trials"`
	Conditions       int       `json:"conditions"`
	Calculator       string    `json:"calculator"`
	Source           string    `json:"source,omitempty"`
	RunID            string    `json:"run_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Bundle is the full output for one channel set. Per-state matrices are
// conditions x states; TPMs holds one states x channels matrix per
// condition.
type Bundle struct {
	Meta        Meta
	StatePhis   *mat.Dense
	StateCounts *mat.Dense
	MIPs        *mat.Dense
	TPMs        []*mat.Dense
}

// Validate checks that the matrices agree with each other and with Meta
func (b *Bundle) Validate() error {
	if b.StatePhis == nil || b.StateCounts == nil || b.MIPs == nil {
		return apperrors.NewValidationError("bundle is missing per-state arrays", nil)
	}
	conds, states := b.StatePhis.Dims()
	for name, m := range map[string]*mat.Dense{"state counts": b.StateCounts, "mips": b.MIPs} {
		if r, c := m.Dims(); r != conds || c != states {
			return apperrors.NewValidationError(
				fmt.Sprintf("%s are %dx%d, phis are %dx%d", name, r, c, conds, states), nil)
		}
	}
	if len(b.TPMs) != conds {
		return apperrors.NewValidationError(
			fmt.Sprintf("bundle has %d TPMs for %d conditions", len(b.TPMs), conds), nil)
	}
	for k, tpm := range b.TPMs {
		if r, c := tpm.Dims(); r != states || c != len(b.Meta.Channels) {
			return apperrors.NewValidationError(
				fmt.Sprintf("TPM of condition %d is %dx%d, want %dx%d", k, r, c, states, len(b.Meta.Channels)), nil)
		}
	}
	return nil
}

// Encode writes the bundle as a deflate-compressed npz archive
func (b *Bundle) Encode(w io.Writer) error {
	if err := b.Validate(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	meta, err := json.MarshalIndent(b.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writeMember(zw, memberMeta, func(mw io.Writer) error {
		_, err := mw.Write(meta)
		return err
	}); err != nil {
		return err
	}

	arrays := []struct {
		name string
		m    *mat.Dense
	}{
		{memberStatePhis, b.StatePhis},
		{memberStateCounts, b.StateCounts},
		{memberMIPs, b.MIPs},
	}
	for k, tpm := range b.TPMs {
		arrays = append(arrays, struct {
			name string
			m    *mat.Dense
		}{fmt.Sprintf("%s%d.npy", memberTPMPrefix, k), tpm})
	}

	for _, a := range arrays {
		m := a.m
		if err := writeMember(zw, a.name, func(mw io.Writer) error {
			return npyio.Write(mw, m)
		}); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish npz archive: %w", err)
	}
	return nil
}

func writeMember(zw *zip.Writer, name string, write func(io.Writer) error) error {
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if err := write(mw); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Decode reads a bundle produced by Encode
func Decode(r io.ReaderAt, size int64) (*Bundle, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid bundle archive", err)
	}

	b := &Bundle{}
	tpms := map[int]*mat.Dense{}
	sawMeta := false

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, apperrors.NewParsingError("failed to open bundle member "+f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read bundle member "+f.Name, err)
		}

		if f.Name == memberMeta {
			if err := json.Unmarshal(data, &b.Meta); err != nil {
				return nil, apperrors.NewParsingError("invalid bundle metadata", err)
			}
			sawMeta = true
			continue
		}

		m, err := decodeMatrix(data)
		if err != nil {
			return nil, apperrors.NewParsingError("invalid bundle member "+f.Name, err)
		}

		switch {
		case f.Name == memberStatePhis:
			b.StatePhis = m
		case f.Name == memberStateCounts:
			b.StateCounts = m
		case f.Name == memberMIPs:
			b.MIPs = m
		case strings.HasPrefix(f.Name, memberTPMPrefix):
			k, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, memberTPMPrefix), ".npy"))
			if err != nil {
				return nil, apperrors.NewParsingError("invalid TPM member name "+f.Name, err)
			}
			tpms[k] = m
		}
	}

	if !sawMeta {
		return nil, apperrors.NewParsingError("bundle has no "+memberMeta, nil)
	}
	for k := 0; k < len(tpms); k++ {
		tpm, ok := tpms[k]
		if !ok {
			return nil, apperrors.NewParsingError(fmt.Sprintf("bundle is missing the TPM of condition %d", k), nil)
		}
		b.TPMs = append(b.TPMs, tpm)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeMatrix(data []byte) (*mat.Dense, error) {
	arr, err := dataio.DecodeNPY(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) != 2 {
		return nil, fmt.Errorf("expected a 2-d array, got shape %v", arr.Shape)
	}
	if arr.Size() == 0 {
		return nil, fmt.Errorf("empty array")
	}
	return mat.NewDense(arr.Shape[0], arr.Shape[1], arr.Data), nil
}

// ReadBundle opens and decodes the bundle at path
func ReadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("bundle " + path)
		}
		return nil, apperrors.NewStorageError("failed to open bundle", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to stat bundle", err)
	}
	return Decode(f, info.Size())
}
