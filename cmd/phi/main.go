// Command phi builds a TPM for every listed channel set of a recording,
// computes phi for every state and writes one result bundle per set.
//
//	phi -data session.npz -key spikes -sets-file sets_0.txt -method logreg -order 2 -out results
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"phicli/internal/channelset"
	"phicli/internal/config"
	"phicli/internal/dataio"
	apperrors "phicli/internal/errors"
	"phicli/internal/files"
	"phicli/internal/infrastructure"
	"phicli/internal/operations"
	"phicli/internal/phi"
	"phicli/internal/results"
	"phicli/internal/tpm"
	transport "phicli/internal/transport/http"
	"phicli/pkg/contracts"
)

type options struct {
	configPath   string
	sets         string
	setsFile     string
	data         string
	key          string
	method       string
	tau          int
	order        int
	out          string
	suffix       string
	workers      int
	skipExisting bool
	summary      string
	summaryXLSX  string
	metricsAddr  string
	version      bool
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("phi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "YAML config file (defaults to phi.yaml or configs/phi.yaml if present)")
	fs.StringVar(&o.sets, "sets", "", "channel sets, one 'id,ch,ch,...' per line (1-based channels)")
	fs.StringVar(&o.setsFile, "sets-file", "", "file holding channel sets in the -sets format")
	fs.StringVar(&o.data, "data", "", "recording (.npy, .npz or .csv), relative to the data directory")
	fs.StringVar(&o.key, "key", "", "array name inside an .npz recording (default: first array)")
	fs.StringVar(&o.method, "method", "", "TPM method: direct or logreg")
	fs.IntVar(&o.tau, "tau", 0, "time lag between present and next state")
	fs.IntVar(&o.order, "order", 0, "interaction order for logreg (0 = all orders)")
	fs.StringVar(&o.out, "out", "", "results root directory")
	fs.StringVar(&o.suffix, "suffix", "", "text inserted into bundle file names before _phi.npz")
	fs.IntVar(&o.workers, "workers", 0, "states computed in parallel per TPM")
	fs.BoolVar(&o.skipExisting, "skip-existing", false, "skip channel sets whose bundle already exists")
	fs.StringVar(&o.summary, "summary", "", "write a CSV summary of the run to this file")
	fs.StringVar(&o.summaryXLSX, "summary-xlsx", "", "also write the summary as an Excel workbook")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /healthz, /status and /metrics on this address")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// applyFlags overrides configuration with explicitly given flags
func applyFlags(cfg *config.Config, o *options, set map[string]bool) {
	if set["method"] {
		cfg.Compute.Method = o.method
	}
	if set["tau"] {
		cfg.Compute.Tau = o.tau
	}
	if set["order"] {
		cfg.Compute.InteractionOrder = o.order
	}
	if set["out"] {
		cfg.Paths.ResultsDir = o.out
	}
	if set["workers"] {
		cfg.Compute.Workers = o.workers
	}
	if set["skip-existing"] {
		cfg.Compute.SkipExisting = o.skipExisting
	}
	if set["metrics-addr"] {
		cfg.Telemetry.MetricsAddr = o.metricsAddr
	}
}

func readSets(o *options) ([]channelset.Set, error) {
	switch {
	case o.sets != "" && o.setsFile != "":
		return nil, apperrors.NewValidationError("use either -sets or -sets-file, not both", nil)
	case o.setsFile != "":
		data, err := os.ReadFile(o.setsFile)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to read channel-set file", err)
		}
		return channelset.Parse(string(data))
	case o.sets != "":
		// shells often pass the newlines escaped
		return channelset.Parse(strings.ReplaceAll(o.sets, `\n`, "\n"))
	}
	return nil, apperrors.NewValidationError("no channel sets given: use -sets or -sets-file", nil)
}

// recordingChoiceError explains that -data named a directory and lists
// the recordings it holds
func recordingChoiceError(dir string) error {
	found, err := files.NewDiscovery("").FindRecordings(dir)
	if err != nil {
		return apperrors.NewStorageError("failed to list recordings", err)
	}
	if len(found) == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("-data %s is a directory without recordings", dir), nil)
	}

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.Name
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("-data %s is a directory; pick one of: %s", dir, strings.Join(names, ", ")), nil).
		WithContext("recordings", names)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		_, err := fmt.Fprintln(stdout, contracts.GetFullVersionString("phi"))
		return err
	}
	if o.data == "" {
		return apperrors.NewValidationError("-data is required", nil)
	}
	if o.summaryXLSX != "" && o.summary == "" {
		return apperrors.NewValidationError("-summary-xlsx needs -summary", nil)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, o, set)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Compute.Alphabet != 2 {
		return apperrors.NewValidationError(
			fmt.Sprintf("phi needs binary data, alphabet is %d", cfg.Compute.Alphabet), nil)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	paths, err := cfg.Resolve()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	method, err := tpm.ParseMethod(cfg.Compute.Method)
	if err != nil {
		return err
	}

	sets, err := readSets(o)
	if err != nil {
		return err
	}

	dataPath := paths.DataFile(o.data)
	if info, err := os.Stat(dataPath); err == nil && info.IsDir() {
		return recordingChoiceError(dataPath)
	}
	ds, err := dataio.Load(dataPath, o.key)
	if err != nil {
		return err
	}

	builder, err := tpm.NewBuilder(method, tpm.Options{
		Tau:              cfg.Compute.Tau,
		Alphabet:         cfg.Compute.Alphabet,
		InteractionOrder: cfg.Compute.InteractionOrder,
		MaxChannels:      cfg.Compute.MaxChannels,
		Regression: tpm.RegressionOptions{
			C:                 cfg.Regression.C,
			MaxIterations:     cfg.Regression.MaxIterations,
			GradientTolerance: cfg.Regression.GradientTolerance,
		},
		Logger: infrastructure.WithComponent(logger, "tpm"),
	})
	if err != nil {
		return err
	}

	providers, err := infrastructure.InitializeOTel(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownGrace)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tracer, err := operations.NewRunTracer(providers)
	if err != nil {
		return err
	}

	var summary *results.SummaryWriter
	if o.summary != "" {
		summary, err = results.NewSummaryWriter(o.summary, o.summaryXLSX)
		if err != nil {
			return err
		}
		defer summary.Close()
	}

	if cfg.Compute.SkipExisting {
		existing, err := files.NewDiscovery(paths.ResultsDir).FindBundles(".", o.suffix+results.BundleSuffix)
		if err != nil {
			return apperrors.NewStorageError("failed to scan results directory", err)
		}
		logger.Info("Resuming into existing results",
			slog.String("results_dir", paths.ResultsDir),
			slog.Int("bundles", len(existing)))
	}

	writer := results.NewWriter(
		results.NewLayout(paths.ResultsDir, cfg.Compute.MaxFilesPerDir),
		o.suffix,
		files.NewManager(paths),
	)

	runner, err := operations.NewRunner(operations.RunnerConfig{
		Builder:        builder,
		Calculator:     phi.NewMIPCalculator(),
		CalculatorName: "mip",
		Writer:         writer,
		Summary:        summary,
		Tracer:         tracer,
		Logger:         logger,
		Workers:        cfg.Compute.Workers,
		SkipExisting:   cfg.Compute.SkipExisting,
	})
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsAddr != "" {
		handler := transport.NewStatusHandler(runner, transport.RunInfo{
			Method:     string(method),
			DataFile:   ds.Source,
			ResultsDir: paths.ResultsDir,
			Version:    contracts.Version,
		}, providers.PrometheusHTTP, logger)

		srv, err := transport.Start(cfg.Telemetry.MetricsAddr, handler.Routes(), logger)
		if err != nil {
			return apperrors.NewConfigError("failed to start status server", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Status server shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	report, runErr := runner.Run(ctx, ds, sets)
	if summary != nil {
		if err := summary.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("All channel sets done",
		slog.String("run_id", report.RunID),
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
		slog.String("results_dir", paths.ResultsDir),
		slog.Duration("duration", report.Duration))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("phi failed", "error", err)
		os.Exit(1)
	}
}
