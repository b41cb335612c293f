package results

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperrors "phicli/internal/errors"
)

const summarySheet = "summary"

// SummaryHeaders are the columns of the batch summary
var SummaryHeaders = []string{
	"set_id", "channels", "condition", "method", "tau", "interaction_order",
	"trials", "states", "observed_states", "mean_phi", "max_phi", "max_phi_state", "path",
}

// SummaryRow is one channel set under one condition
type SummaryRow struct {
	SetID            int
	Channels         []int
	Condition        int
	Method           string
	Tau              int
	InteractionOrder int
	Trials           int
	States           int
	ObservedStates   int
	MeanPhi          float64
	MaxPhi           float64
	MaxPhiState      int
	Path             string
}

// Rows derives one summary row per condition of a bundle
func Rows(b *Bundle, path string) []SummaryRow {
	conds, states := b.StatePhis.Dims()
	rows := make([]SummaryRow, conds)
	for c := 0; c < conds; c++ {
		phis := mat.Row(nil, c, b.StatePhis)
		counts := mat.Row(nil, c, b.StateCounts)

		observed := 0
		for _, n := range counts {
			if n > 0 {
				observed++
			}
		}
		best := floats.MaxIdx(phis)

		rows[c] = SummaryRow{
			SetID:            b.Meta.SetID,
			Channels:         b.Meta.Channels,
			Condition:        c,
			Method:           b.Meta.Method,
			Tau:              b.Meta.Tau,
			InteractionOrder: b.Meta.InteractionOrder,
			Trials:           b.Meta.Trials,
			States:           states,
			ObservedStates:   observed,
			MeanPhi:          floats.Sum(phis) / float64(states),
			MaxPhi:           phis[best],
			MaxPhiState:      best,
			Path:             path,
		}
	}
	return rows
}

func (r SummaryRow) record() []string {
	return []string{
		formatInt(r.SetID),
		formatChannels(r.Channels),
		formatInt(r.Condition),
		r.Method,
		formatInt(r.Tau),
		formatInt(r.InteractionOrder),
		formatInt(r.Trials),
		formatInt(r.States),
		formatInt(r.ObservedStates),
		formatFloat(r.MeanPhi),
		formatFloat(r.MaxPhi),
		formatInt(r.MaxPhiState),
		r.Path,
	}
}

func (r SummaryRow) values() []interface{} {
	return []interface{}{
		r.SetID, formatChannels(r.Channels), r.Condition, r.Method, r.Tau, r.InteractionOrder,
		r.Trials, r.States, r.ObservedStates, r.MeanPhi, r.MaxPhi, r.MaxPhiState, r.Path,
	}
}

// SummaryWriter streams summary rows to CSV and mirrors them into an
// Excel workbook saved on Close
type SummaryWriter struct {
	file     *os.File
	writer   *csv.Writer
	xlsx     *excelize.File
	xlsxPath string
	next     int
	closed   bool
}

// NewSummaryWriter creates csvPath. A non-empty xlsxPath also produces a
// workbook with the same rows.
func NewSummaryWriter(csvPath, xlsxPath string) (*SummaryWriter, error) {
	slog.Info("Creating summary writer",
		slog.String("csv_path", csvPath),
		slog.String("xlsx_path", xlsxPath))

	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create summary directory", err)
	}

	file, err := os.Create(csvPath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create summary file", err)
	}

	s := &SummaryWriter{file: file, writer: csv.NewWriter(file), xlsxPath: xlsxPath, next: 1}
	if err := s.writer.Write(SummaryHeaders); err != nil {
		file.Close()
		return nil, apperrors.NewStorageError("failed to write summary headers", err)
	}

	if xlsxPath != "" {
		s.xlsx = excelize.NewFile()
		if err := s.xlsx.SetSheetName("Sheet1", summarySheet); err != nil {
			s.abort()
			return nil, apperrors.NewStorageError("failed to prepare workbook", err)
		}
		if err := s.appendSheetRow(toInterfaces(SummaryHeaders)); err != nil {
			s.abort()
			return nil, err
		}
	}
	return s, nil
}

// WriteBundle appends the rows of b
func (s *SummaryWriter) WriteBundle(b *Bundle, path string) error {
	for _, row := range Rows(b, path) {
		if err := s.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow appends one row
func (s *SummaryWriter) WriteRow(row SummaryRow) error {
	if err := s.writer.Write(row.record()); err != nil {
		return apperrors.NewStorageError("failed to write summary row", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush summary", err)
	}

	if s.xlsx != nil {
		return s.appendSheetRow(row.values())
	}
	return nil
}

func (s *SummaryWriter) appendSheetRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		return apperrors.NewStorageError("invalid workbook cell", err)
	}
	if err := s.xlsx.SetSheetRow(summarySheet, cell, &values); err != nil {
		return apperrors.NewStorageError("failed to write workbook row", err)
	}
	s.next++
	return nil
}

// Close flushes the CSV file and saves the workbook. Calls after the
// first are no-ops.
func (s *SummaryWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.abort()
		return apperrors.NewStorageError("failed to flush summary", err)
	}
	if err := s.file.Close(); err != nil {
		if s.xlsx != nil {
			s.xlsx.Close()
		}
		return apperrors.NewStorageError("failed to close summary", err)
	}

	if s.xlsx == nil {
		return nil
	}
	defer s.xlsx.Close()
	if err := s.xlsx.SaveAs(s.xlsxPath); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to save workbook %s", s.xlsxPath), err)
	}
	return nil
}

func (s *SummaryWriter) abort() {
	s.file.Close()
	if s.xlsx != nil {
		s.xlsx.Close()
	}
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
