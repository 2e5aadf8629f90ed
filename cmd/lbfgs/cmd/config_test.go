// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/owlqn/lbfgs"
)

// syncBuffer is a bytes.Buffer shared by the log writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rosenbrock"}, config.Problems)
	assert.Equal(t, 10, config.Dim)
	assert.Equal(t, lbfgs.DefaultParam, config.Param)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
problems: [quadratic, lasso]
dim: 4
logLevel: debug
param:
  m: 8
  lineSearch: more-thuente
  epsilon: 1e-7
  past: 3
`)
	config, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"quadratic", "lasso"}, config.Problems)
	assert.Equal(t, 4, config.Dim)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 8, config.Param.M)
	assert.Equal(t, lbfgs.MoreThuente, config.Param.LineSearch)
	assert.Equal(t, 1e-7, config.Param.Epsilon)
	assert.Equal(t, 3, config.Param.Past)
	// untouched fields keep their defaults
	assert.Equal(t, lbfgs.DefaultParam.FTol, config.Param.FTol)
	assert.Equal(t, lbfgs.DefaultParam.OrthantwiseEnd, config.Param.OrthantwiseEnd)
}

func TestLoadConfigFlags(t *testing.T) {
	path := writeConfig(t, `
dim: 4
param:
  lineSearch: armijo
`)
	cmd := runCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--linesearch", "strong-wolfe", "--problems", "quadratic,rosenbrock"}))

	config, err := LoadConfig(path, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, lbfgs.BacktrackingStrongWolfe, config.Param.LineSearch)
	assert.Equal(t, []string{"quadratic", "rosenbrock"}, config.Problems)
	assert.Equal(t, 4, config.Dim)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LBFGS_DIM", "6")
	path := writeConfig(t, "dim: 4\n")

	config, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, config.Dim)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"line search": "param:\n  lineSearch: newton\n",
		"dimension":   "dim: 0\n",
		"log level":   "logLevel: loud\n",
		"history":     "param:\n  m: 0\n",
		"wolfe":       "param:\n  wolfe: 1.5\n",
		"gradient":    "gradient: backward\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content), nil)
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "param:\n  m: 0\n"), nil)
	assert.ErrorIs(t, err, lbfgs.ErrInvalidM)
}

func TestRun(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)
	config.Problems = []string{"quadratic", "lasso", "leastsquares"}
	config.Dim = 5
	config.Parallelism = 2

	var buf syncBuffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetLevel(log.TraceLevel)

	outcomes, err := Run(context.Background(), config, logger)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for _, o := range outcomes {
		assert.Falsef(t, o.Status.Config(), "%s: %v", o.Problem, o.Status)
	}
	assert.Equal(t, "lasso", outcomes[1].Problem)
	assert.Contains(t, buf.String(), "RUNNING THE L-BFGS CODE")
	assert.Contains(t, buf.String(), "problem=quadratic")

	var out bytes.Buffer
	require.NoError(t, PrintOutcomes(&out, outcomes))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "PROBLEM"))
}

func TestRunNumericGradient(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)
	config.Problems = []string{"quadratic"}
	config.Dim = 3
	config.Gradient = "central"

	outcomes, err := Run(context.Background(), config, log.New())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, outcomes[0].X, 1e-4)
}

func TestRunInvalid(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)

	config.Problems = []string{"unknown"}
	_, err = Run(context.Background(), config, log.New())
	assert.Error(t, err)

	config.Problems = []string{"quadratic"}
	config.Param.OrthantwiseStart = 100
	_, err = Run(context.Background(), config, log.New())
	assert.ErrorIs(t, err, lbfgs.ErrInvalidOrthantwiseStart)
}

func TestRunCancelled(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, config, log.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(&out)

	root.SetArgs([]string{"list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "rosenbrock")

	out.Reset()
	root.SetArgs([]string{"run", "--problems", "quadratic", "--dim", "3", "--linesearch", "more-thuente"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "PROBLEM")
	assert.Contains(t, out.String(), "quadratic")
}
