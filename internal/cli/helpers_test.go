package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// testEnv is an isolated config and data directory.
type testEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	tempDir := t.TempDir()
	e := &testEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
	}
	require.NoError(t, os.MkdirAll(e.Config, 0o755))
	content := "data_dir: " + e.DataDir + "\nlog:\n  level: error\n" + extraConfig
	require.NoError(t, os.WriteFile(filepath.Join(e.Config, "config.yaml"), []byte(content), 0o644))
	return e
}

// cmdResult holds the outcome of one command.
type cmdResult struct {
	Stdout   string
	Err      error
	ExitCode int
}

func (e *testEnv) run(args ...string) cmdResult {
	e.t.Helper()
	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config-dir", e.Config}, args...))
	err := root.Execute()
	return cmdResult{Stdout: stdout.String(), Err: err, ExitCode: exitCode(err)}
}

func (e *testEnv) mustRun(args ...string) cmdResult {
	e.t.Helper()
	res := e.run(args...)
	require.NoError(e.t, res.Err, "cursorbox %v\nstdout: %s", args, res.Stdout)
	return res
}

func (e *testEnv) cursorsDir() string { return filepath.Join(e.DataDir, "cursors") }

func (e *testEnv) writeCur(name string, size int, h types.Hotspot) string {
	e.t.Helper()
	data, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, size, size)), h)
	require.NoError(e.t, err)
	path := filepath.Join(e.TempDir, name)
	require.NoError(e.t, os.WriteFile(path, data, 0o644))
	return path
}

func (e *testEnv) writeAni(name string, frames int) string {
	e.t.Helper()
	a := &ani.AniData{DefaultRate: 6}
	for i := 0; i < frames; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
		img.Pix[3] = byte(10 * (i + 1))
		data, err := cur.Encode(img, types.Hotspot{X: 2, Y: 3})
		require.NoError(e.t, err)
		a.Frames = append(a.Frames, data)
	}
	data, err := ani.Encode(a)
	require.NoError(e.t, err)
	path := filepath.Join(e.TempDir, name)
	require.NoError(e.t, os.WriteFile(path, data, 0o644))
	return path
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}
