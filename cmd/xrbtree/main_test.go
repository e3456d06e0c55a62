package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root := newRootCommand()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xrbtree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCommand(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "xrbtree "+Version))
}

func TestDemoCommand(t *testing.T) {
	path := writeConfig(t, `tree:
  variant: recursive
  alloc: arena
  arena_chunk_cap: 8
logging:
  level: error
`)
	out, _, err := runCommand(t, "demo", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "[5 8 9 12 24 31 34 69 324 2985]")
	require.Contains(t, out, "[8 9 24 31 34 324]")
}

func TestDemoCommand_BadConfig(t *testing.T) {
	path := writeConfig(t, "tree:\n  variant: avl\n")
	_, _, err := runCommand(t, "demo", "-c", path)
	require.Error(t, err)
}

func TestSoakCommand_StdoutMetrics(t *testing.T) {
	path := writeConfig(t, `soak:
  workers: 2
  rounds: 2
  keys: 32
  ops: 200
  check_every: 20
logging:
  level: error
metrics:
  exporter: stdout
  interval: 1h
`)
	out, errOut, err := runCommand(t, "soak", "--config", path, "--seed", "11")
	require.NoError(t, err)
	out = strings.ToLower(out)
	require.Contains(t, out, "2/2 completed, 0 failed")
	require.Contains(t, out, "11")
	// The periodic reader flushes once on shutdown.
	require.Contains(t, errOut, "rbtree.insert.count")
}

func TestSoakCommand_Prometheus(t *testing.T) {
	path := writeConfig(t, `soak:
  workers: 1
  rounds: 1
  keys: 16
  ops: 100
logging:
  level: error
metrics:
  exporter: prometheus
  listen: 127.0.0.1:0
`)
	out, _, err := runCommand(t, "soak", "--config", path)
	require.NoError(t, err)
	require.Contains(t, strings.ToLower(out), "1/1 completed")
}
