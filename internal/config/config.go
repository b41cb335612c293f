package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "PHI"

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Compute    ComputeConfig    `yaml:"compute" envconfig:"COMPUTE"`
	Regression RegressionConfig `yaml:"regression" envconfig:"REGRESSION"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ResultsDir string `yaml:"results_dir" envconfig:"RESULTS_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// ComputeConfig holds the TPM and phi computation settings
type ComputeConfig struct {
	Method           string `yaml:"method" envconfig:"METHOD" validate:"required"`
	Tau              int    `yaml:"tau" envconfig:"TAU" validate:"min=1"`
	InteractionOrder int    `yaml:"interaction_order" envconfig:"INTERACTION_ORDER" validate:"min=0"`
	Alphabet         int    `yaml:"alphabet" envconfig:"ALPHABET" validate:"min=2"`
	MaxChannels      int    `yaml:"max_channels" envconfig:"MAX_CHANNELS" validate:"min=1,max=30"`
	Workers          int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	MaxFilesPerDir   int    `yaml:"max_files_per_dir" envconfig:"MAX_FILES_PER_DIR" validate:"min=1"`
	SkipExisting     bool   `yaml:"skip_existing" envconfig:"SKIP_EXISTING"`
}

// RegressionConfig tunes the logistic-regression solver
type RegressionConfig struct {
	C                 float64 `yaml:"c" envconfig:"C" validate:"gt=0"`
	MaxIterations     int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"min=1"`
	GradientTolerance float64 `yaml:"gradient_tolerance" envconfig:"GRADIENT_TOLERANCE" validate:"gt=0"`
}

// TelemetryConfig selects exporters for traces and metrics
type TelemetryConfig struct {
	TraceExporter  string        `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string        `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	MetricsAddr    string        `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" envconfig:"SHUTDOWN_GRACE"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/phi.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ResultsDir: "results",
			LogsDir:    "logs",
		},
		Compute: ComputeConfig{
			Method:           "direct",
			Tau:              1,
			InteractionOrder: 0,
			Alphabet:         2,
			MaxChannels:      20,
			Workers:          1,
			MaxFilesPerDir:   1000000,
		},
		Regression: RegressionConfig{
			C:                 1.0,
			MaxIterations:     100,
			GradientTolerance: 1e-4,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			ShutdownGrace:  5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// PHI_* environment variables, in increasing order of precedence. An empty
// path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and normalises logging settings
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)

	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required for output %q", c.Logging.Output)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"phi.yaml",
		"configs/phi.yaml",
		"../configs/phi.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}
