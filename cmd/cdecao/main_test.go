package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instance.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const s1Doc = `{
  "courses": [
    {"name": "A", "num_min": 1, "num_max": 3, "instructors": [0]},
    {"name": "B", "num_min": 1, "num_max": 2, "instructors": [1]}
  ],
  "participants": [
    {"name": "iA", "choices": []},
    {"name": "iB", "choices": []},
    {"name": "p1", "choices": [0]},
    {"name": "p2", "choices": [0]}
  ]
}`

func TestRun_S1_WritesOptimalAssignment(t *testing.T) {
	in := writeInput(t, s1Doc)
	out := filepath.Join(t.TempDir(), "out.json")

	code := run([]string{in, out}, os.Stdout, os.Stderr)
	assert.Equal(t, exitOptimal, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res struct {
		Assignment []int `json:"assignment"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 0, res.Assignment[2])
	assert.Equal(t, 0, res.Assignment[3])
}

const s4Doc = `{
  "courses": [{"name": "A", "num_min": 10, "num_max": 20, "instructors": [0], "fixed_course": true}],
  "participants": [
    {"name": "iA", "choices": []},
    {"name": "p1", "choices": [0]},
    {"name": "p2", "choices": [0]}
  ]
}`

func TestRun_S4_InfeasibleExitCode(t *testing.T) {
	in := writeInput(t, s4Doc)
	code := run([]string{"--report-no-solution", in}, os.Stdout, os.Stderr)
	assert.Equal(t, exitInfeasible, code)
}

func TestRun_MissingInputFile(t *testing.T) {
	code := run([]string{filepath.Join(t.TempDir(), "missing.json")}, os.Stdout, os.Stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRun_NoPositionalArgs(t *testing.T) {
	code := run([]string{}, os.Stdout, os.Stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRun_CdeWithoutTrack(t *testing.T) {
	in := writeInput(t, s1Doc)
	code := run([]string{"--cde", in}, os.Stdout, os.Stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRun_RoomsFlagAppliesExtension(t *testing.T) {
	in := writeInput(t, s1Doc)
	out := filepath.Join(t.TempDir(), "out.json")
	code := run([]string{"--rooms", "5,5", in, out}, os.Stdout, os.Stderr)
	assert.Equal(t, exitOptimal, code)
}

func TestRun_DotTreeFlagWritesFile(t *testing.T) {
	in := writeInput(t, s1Doc)
	out := filepath.Join(t.TempDir(), "out.json")
	dot := filepath.Join(t.TempDir(), "tree.dot")

	code := run([]string{"--dot-tree", dot, in, out}, os.Stdout, os.Stderr)
	assert.Equal(t, exitOptimal, code)

	data, err := os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph bnbtree")
}
