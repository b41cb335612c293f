package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phicli/internal/config"
	apperrors "phicli/internal/errors"
	"phicli/internal/infrastructure"
	"phicli/internal/results"
)

// setupWorkspace writes a config pointing every directory into a temp dir
// and a 3-channel CSV recording into its data directory.
func setupWorkspace(t *testing.T) (root, configPath string) {
	t.Helper()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	root = t.TempDir()
	for _, dir := range []string{"data", "results", "logs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}

	yaml := fmt.Sprintf(`logging:
  level: warn
paths:
  data_dir: %s
  results_dir: %s
  logs_dir: %s
compute:
  max_files_per_dir: 10
`, filepath.Join(root, "data"), filepath.Join(root, "results"), filepath.Join(root, "logs"))
	configPath = filepath.Join(root, "phi.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0644))

	var csv strings.Builder
	csv.WriteString("a,b,c\n")
	for i := 0; i < 64; i++ {
		fmt.Fprintf(&csv, "%d,%d,%d\n", i%2, (i/2)%2, (i/3)%2)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "rec.csv"), []byte(csv.String()), 0644))
	return root, configPath
}

func TestRun(t *testing.T) {
	root, configPath := setupWorkspace(t)
	summary := filepath.Join(root, "summary.csv")

	err := run(context.Background(), []string{
		"-config", configPath,
		"-data", "rec.csv",
		"-sets", `3,1,2\n12,1,2,3`,
		"-suffix", "_test",
		"-summary", summary,
		"-workers", "2",
	}, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	layout := results.NewLayout(filepath.Join(root, "results"), 10)
	b, err := results.ReadBundle(layout.Path(12, "_test"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, b.Meta.Channels)
	assert.Equal(t, "direct", b.Meta.Method)
	_, states := b.StatePhis.Dims()
	assert.Equal(t, 8, states)

	_, err = os.Stat(filepath.Join(root, "results", "0", "00000003_test_phi.npz"))
	assert.NoError(t, err)

	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRunLogReg(t *testing.T) {
	root, configPath := setupWorkspace(t)
	setsFile := filepath.Join(root, "sets.txt")
	require.NoError(t, os.WriteFile(setsFile, []byte("5,1,3\r\n"), 0644))

	err := run(context.Background(), []string{
		"-config", configPath,
		"-data", filepath.Join(root, "data", "rec.csv"),
		"-sets-file", setsFile,
		"-method", "logreg",
		"-order", "1",
		"-tau", "2",
	}, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	b, err := results.ReadBundle(results.NewLayout(filepath.Join(root, "results"), 10).Path(5, ""))
	require.NoError(t, err)
	assert.Equal(t, "logreg", b.Meta.Method)
	assert.Equal(t, 2, b.Meta.Tau)
	assert.Equal(t, 1, b.Meta.InteractionOrder)
}

func TestRunErrors(t *testing.T) {
	root, configPath := setupWorkspace(t)

	tests := []struct {
		name     string
		args     []string
		wantType apperrors.ErrorType
	}{
		{
			name:     "missing data flag",
			args:     []string{"-config", configPath, "-sets", "1,1"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "no sets",
			args:     []string{"-config", configPath, "-data", "rec.csv"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "unknown method",
			args:     []string{"-config", configPath, "-data", "rec.csv", "-sets", "1,1", "-method", "bayes"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "missing recording",
			args:     []string{"-config", configPath, "-data", "nope.npy", "-sets", "1,1"},
			wantType: apperrors.ErrTypeNotFound,
		},
		{
			name:     "xlsx summary without csv summary",
			args:     []string{"-config", configPath, "-data", "rec.csv", "-sets", "1,1", "-summary-xlsx", filepath.Join(root, "s.xlsx")},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "data is a directory",
			args:     []string{"-config", configPath, "-data", ".", "-sets", "1,1"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "channel out of range",
			args:     []string{"-config", configPath, "-data", "rec.csv", "-sets", "1,1,4"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "both set sources",
			args:     []string{"-config", configPath, "-data", "rec.csv", "-sets", "1,1", "-sets-file", filepath.Join(root, "x")},
			wantType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestRunDataDirectoryListsRecordings(t *testing.T) {
	root, configPath := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "notes.txt"), []byte("x"), 0644))

	err := run(context.Background(), []string{
		"-config", configPath,
		"-data", filepath.Join(root, "data"),
		"-sets", "1,1",
	}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rec.csv")
	assert.NotContains(t, err.Error(), "notes.txt")
}

func TestRunSkipExisting(t *testing.T) {
	root, configPath := setupWorkspace(t)
	args := []string{
		"-config", configPath,
		"-data", "rec.csv",
		"-sets", `1,1,2
2,2,3`,
		"-skip-existing",
	}

	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{}))
	path := results.NewLayout(filepath.Join(root, "results"), 10).Path(1, "")
	first, err := os.Stat(path)
	require.NoError(t, err)

	infrastructure.ResetLoggerForTesting()
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{}))
	second, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())
}

func TestApplyFlags(t *testing.T) {
	o, set, err := parseFlags([]string{"-tau", "3", "-out", "elsewhere", "-skip-existing"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg := config.Default()
	applyFlags(cfg, o, set)

	assert.Equal(t, 3, cfg.Compute.Tau)
	assert.Equal(t, "elsewhere", cfg.Paths.ResultsDir)
	assert.True(t, cfg.Compute.SkipExisting)
	// flags left out keep the configured value
	assert.Equal(t, "direct", cfg.Compute.Method)
	assert.Equal(t, 1, cfg.Compute.Workers)
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "phi v")
}
