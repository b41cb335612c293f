package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/mat"

	"phicli/internal/channelset"
	"phicli/internal/dataio"
	apperrors "phicli/internal/errors"
	"phicli/internal/infrastructure"
	"phicli/internal/phi"
	"phicli/internal/results"
	"phicli/internal/tpm"
	"phicli/pkg/contracts"
)

// DefaultProgressInterval spaces the periodic progress log lines
const DefaultProgressInterval = 30 * time.Second

// RunnerConfig wires a Runner
type RunnerConfig struct {
	Builder    tpm.Builder
	Calculator phi.Calculator
	// CalculatorName is recorded in bundle metadata
	CalculatorName string
	Writer         *results.Writer
	// Summary is optional
	Summary *results.SummaryWriter
	Tracer  *RunTracer
	Logger  *slog.Logger

	Workers          int
	SkipExisting     bool
	ProgressInterval time.Duration
}

// Report summarises a finished run
type Report struct {
	RunID     string
	Processed int
	Skipped   int
	Paths     []string
	Duration  time.Duration
}

// Runner processes channel sets one after another
type Runner struct {
	cfg      RunnerConfig
	progress atomic.Pointer[ProgressTracker]
}

// NewRunner validates cfg and fills in defaults
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Builder == nil || cfg.Calculator == nil || cfg.Writer == nil {
		return nil, apperrors.NewConfigError("runner needs a TPM builder, a phi calculator and a bundle writer", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		tracer, err := NewRunTracer(nil)
		if err != nil {
			return nil, err
		}
		cfg.Tracer = tracer
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.CalculatorName == "" {
		cfg.CalculatorName = "mip"
	}
	cfg.Logger = infrastructure.WithComponent(cfg.Logger, "runner")

	r := &Runner{cfg: cfg}
	r.progress.Store(NewProgressTracker(0))
	return r, nil
}

// Progress returns the progress of the current or last run
func (r *Runner) Progress() Snapshot {
	return r.progress.Load().Snapshot()
}

// Run processes every set against ds. It stops at the first failing set
// and returns the work done so far together with the error.
func (r *Runner) Run(ctx context.Context, ds *dataio.Dataset, sets []channelset.Set) (*Report, error) {
	ctx, runID := infrastructure.ContextWithRunID(ctx)
	logger := r.cfg.Logger.With(slog.String("run_id", runID))

	if err := channelset.Validate(sets, ds.Channels); err != nil {
		return nil, err
	}

	tracker := NewProgressTracker(len(sets))
	r.progress.Store(tracker)
	report := &Report{RunID: runID}
	start := time.Now()

	logger.InfoContext(ctx, "Starting run",
		slog.Int("channel_sets", len(sets)),
		slog.String("method", string(r.cfg.Builder.Method())),
		slog.Int("conditions", ds.Conditions),
		slog.Int("trials", ds.Trials),
		slog.Int("workers", r.cfg.Workers),
		slog.Bool("skip_existing", r.cfg.SkipExisting))

	progressLog := rate.Sometimes{First: 1, Interval: r.cfg.ProgressInterval}

	for _, set := range sets {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			logger.WarnContext(ctx, "Run cancelled", slog.Int("processed", report.Processed))
			return report, err
		}

		tracker.Start(set.ID)
		path, skipped, err := r.processSet(ctx, ds, set, runID)
		if err != nil {
			report.Duration = time.Since(start)
			logger.ErrorContext(ctx, "Channel set failed",
				slog.Int("set_id", set.ID),
				slog.String("channels", set.Label()),
				slog.String("error", err.Error()))
			return report, fmt.Errorf("channel set %d: %w", set.ID, err)
		}

		tracker.Done(skipped)
		if skipped {
			report.Skipped++
		} else {
			report.Processed++
			report.Paths = append(report.Paths, path)
		}

		progressLog.Do(func() {
			snap := tracker.Snapshot()
			logger.InfoContext(ctx, "Progress",
				slog.Int("done", snap.Done),
				slog.Int("total", snap.Total),
				slog.Float64("percentage", snap.Percentage),
				slog.String("eta", snap.ETA))
		})
	}

	report.Duration = time.Since(start)
	logger.InfoContext(ctx, "Run complete",
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (r *Runner) processSet(ctx context.Context, ds *dataio.Dataset, set channelset.Set, runID string) (path string, skipped bool, err error) {
	method := string(r.cfg.Builder.Method())
	ctx, span := r.cfg.Tracer.StartSet(ctx, set.ID, len(set.Channels), method)
	defer func() { r.cfg.Tracer.EndSet(ctx, span, skipped, err) }()

	if r.cfg.SkipExisting && r.cfg.Writer.Exists(set.ID) {
		r.cfg.Logger.DebugContext(ctx, "Skipping existing bundle",
			slog.Int("set_id", set.ID),
			slog.String("path", r.cfg.Writer.PathFor(set.ID)))
		return "", true, nil
	}

	bundle, err := r.BuildBundle(ctx, ds, set)
	if err != nil {
		return "", false, err
	}
	bundle.Meta.RunID = runID

	path, err = r.cfg.Writer.Write(bundle)
	if err != nil {
		return "", false, err
	}
	if r.cfg.Summary != nil {
		if err := r.cfg.Summary.WriteBundle(bundle, path); err != nil {
			return "", false, err
		}
	}

	r.cfg.Logger.DebugContext(ctx, "Channel set processed",
		slog.Int("set_id", set.ID),
		slog.String("channels", set.Label()),
		slog.String("path", path))
	return path, false, nil
}

// BuildBundle computes the TPM and per-state phi of set under every
// condition of ds without writing anything
func (r *Runner) BuildBundle(ctx context.Context, ds *dataio.Dataset, set channelset.Set) (*results.Bundle, error) {
	var (
		phis, counts, mips *mat.Dense
		tpms               []*mat.Dense
		meta               results.Meta
	)

	for cond := 0; cond < ds.Conditions; cond++ {
		trials, err := ds.Select(set.Channels, cond)
		if err != nil {
			return nil, err
		}

		buildStart := time.Now()
		res, err := r.cfg.Builder.Build(ctx, trials)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", cond, err)
		}
		r.cfg.Tracer.RecordTPM(ctx, string(res.Method), time.Since(buildStart))

		phiStart := time.Now()
		states, err := phi.ComputeAll(ctx, r.cfg.Calculator, res.TPM, r.cfg.Workers)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, apperrors.NewComputeError(fmt.Sprintf("phi for condition %d", cond), err)
		}
		r.cfg.Tracer.RecordPhi(ctx, len(set.Channels), time.Since(phiStart))

		if cond == 0 {
			nStates := len(states)
			phis = mat.NewDense(ds.Conditions, nStates, nil)
			counts = mat.NewDense(ds.Conditions, nStates, nil)
			mips = mat.NewDense(ds.Conditions, nStates, nil)
			meta = results.Meta{
				Format:           contracts.BundleFormatVersion,
				SetID:            set.ID,
				Channels:         set.Channels,
				Method:           string(res.Method),
				Tau:              res.Tau,
				InteractionOrder: res.InteractionOrder,
				Alphabet:         res.Alphabet,
				Samples:          ds.Samples,
				Trials:           ds.Trials,
				Conditions:       ds.Conditions,
				Calculator:       r.cfg.CalculatorName,
				Source:           ds.Source,
				CreatedAt:        time.Now().UTC(),
			}
		}

		phis.SetRow(cond, phi.Phis(states))
		counts.SetRow(cond, res.StateCounts)
		for s, st := range states {
			mips.Set(cond, s, float64(st.MIP))
		}
		tpms = append(tpms, res.TPM)
	}

	return &results.Bundle{
		Meta:        meta,
		StatePhis:   phis,
		StateCounts: counts,
		MIPs:        mips,
		TPMs:        tpms,
	}, nil
}
