package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/blitz/internal/report"
)

const tinyConfig = `
log_level: error
warmup: 0
runs: 2
parallel:
  workers: 2
layers:
  - name: small
    n: 2
    c: 3
    h: 6
    w: 5
    k: 4
    r: 3
    s: 3
    pad: 1
    stride: 1
  - name: strided
    n: 1
    c: 4
    h: 7
    w: 7
    k: 2
    r: 2
    s: 3
    pad: 0
    stride: 2
`

// runApp executes the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, device, layout, logLevel, logFormat = "", "", "", "", ""
	algorithms, workers, jsonOutput, debug = nil, 0, false, false

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	err := newApp().Run(context.Background(), append([]string{"blitz"}, args...))
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyConfig), 0o600))
	return path
}

func TestVerifyAgrees(t *testing.T) {
	path := writeConfig(t)

	for _, layout := range []string{"NCHW", "NHWC"} {
		t.Run(layout, func(t *testing.T) {
			out, err := runApp(t, "verify", "--config", path, "--layout", layout, "--json")
			require.NoError(t, err, out)

			var rep report.Report
			require.NoError(t, json.Unmarshal([]byte(out), &rep))
			assert.True(t, rep.Passed())
			assert.Equal(t, layout, rep.Layout)
			assert.NotEmpty(t, rep.RunID)

			// NCHW compares two GEMM variants against direct; NHWC compares fused against BLAS.
			perOp := 2
			if layout == "NHWC" {
				perOp = 1
			}
			assert.Len(t, rep.Checks, 2*3*perOp)
		})
	}
}

func TestBenchReportsEveryRun(t *testing.T) {
	path := writeConfig(t)

	out, err := runApp(t, "bench", "--config", path, "--algorithm", "direct", "--algorithm", "gemm_fused", "--runs", "3", "--json")
	require.NoError(t, err, out)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Timings, 2*2*3, "layers x algorithms x operations")
	for _, timing := range rep.Timings {
		assert.Equal(t, 3, timing.Runs)
		assert.LessOrEqual(t, int64(timing.Min), int64(timing.Max))
	}
	assert.Equal(t, "small", rep.Timings[0].Layer)
	assert.Equal(t, "forward", rep.Timings[0].Operation)
	assert.Equal(t, "direct", rep.Timings[0].Algorithm)
}

func TestBenchSkipsDirectForNHWC(t *testing.T) {
	path := writeConfig(t)

	out, err := runApp(t, "bench", "--config", path, "--layout", "nhwc", "--json")
	require.NoError(t, err, out)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	for _, timing := range rep.Timings {
		assert.NotEqual(t, "direct", timing.Algorithm)
	}
	assert.Len(t, rep.Timings, 2*2*3)
}

func TestWorkspaceCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runApp(t, "workspace", "--config", path, "--algorithm", "gemm_blas", "--json")
	require.NoError(t, err, out)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Workspaces, 2)
	// GEMM needs one PQ x CRS patch matrix: 6*5 positions x 27 taps.
	assert.Equal(t, 6*5*27, rep.Workspaces[0].Elements)
	assert.Equal(t, 6*5*27*4, rep.Workspaces[0].Bytes)
}

func TestInvalidFlagsFail(t *testing.T) {
	path := writeConfig(t)

	_, err := runApp(t, "verify", "--config", path, "--algorithm", "winograd")
	assert.ErrorContains(t, err, "winograd")

	_, err = runApp(t, "bench", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
}
