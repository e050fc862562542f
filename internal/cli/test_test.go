package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relfilter/internal/testutil"
)

const conformanceDir = "../harness/testdata/scenarios"

// writeSuite lays out a scenarios directory with one scenario expecting ids.
func writeSuite(t *testing.T, ids string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "shop.cue", shopSchema)
	testutil.WriteFile(t, dir, "shop.sql", shopSeed)
	testutil.WriteFile(t, dir, "scenarios/adults.yaml", `name: adults
description: adults only
schema: ../shop.cue
seed: ../shop.sql
request:
  - column_name: age
    operator: ">="
    value: 18
expect:
  ids: `+ids+`
`)
	return filepath.Join(dir, "scenarios")
}

func runTestCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func decodeTestResult(t *testing.T, buf *bytes.Buffer) (string, TestResult) {
	t.Helper()
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *struct {
			Details TestResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	if resp.Error != nil {
		return resp.Status, resp.Error.Details
	}
	return resp.Status, resp.Data
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := t.TempDir()

	buf, err := runTestCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")

	buf, err = runTestCommand(t, "json", dir)
	require.NoError(t, err)
	status, result := decodeTestResult(t, buf)
	assert.Equal(t, "ok", status)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandConformanceSuite(t *testing.T) {
	buf, err := runTestCommand(t, "json", conformanceDir)
	require.NoError(t, err, "output: %s", buf.String())

	status, result := decodeTestResult(t, buf)
	assert.Equal(t, "ok", status)
	assert.Equal(t, 15, result.Total)
	assert.Equal(t, 15, result.Passed)
	assert.Zero(t, result.Failed)

	codes := map[string]string{}
	for _, sc := range result.Scenarios {
		assert.NotEmpty(t, sc.RunID, sc.Name)
		codes[sc.Name] = sc.ErrorCode
	}
	assert.Equal(t, "UNSUPPORTED_OPERATOR", codes["unsupported-operator"])
	assert.Equal(t, "UNKNOWN_RELATION", codes["unknown-relation"])
}

func TestTestCommandFilter(t *testing.T) {
	buf, err := runTestCommand(t, "text", conformanceDir, "--filter", "*hybrid*")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PASS hybrid\n")
	assert.Contains(t, buf.String(), "PASS hybrid-without-relation\n")
	assert.Contains(t, buf.String(), "2 passed, 0 failed, 2 total")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := runTestCommand(t, "text", conformanceDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := writeSuite(t, "[1]")

	buf, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "FAIL adults")
	assert.Contains(t, buf.String(), "0 passed, 1 failed, 1 total")

	buf, err = runTestCommand(t, "json", dir)
	require.Error(t, err)
	status, result := decodeTestResult(t, buf)
	assert.Equal(t, "error", status)
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.yaml", "name: broken\nunknown_field: 1\n")

	buf, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "FAIL broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	dir := writeSuite(t, "[1, 2]")
	goldenPath := filepath.Join(filepath.Dir(dir), "golden", "adults.golden")

	_, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t, "and predicate age >= 18\n", string(golden))

	buf, err := runTestCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PASS adults")

	require.NoError(t, os.WriteFile(goldenPath, []byte("and predicate age > 18\n"), 0644))
	buf, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestTestCommandGoldenDirFlag(t *testing.T) {
	dir := writeSuite(t, "[1, 2]")
	goldenDir := t.TempDir()

	_, err := runTestCommand(t, "text", dir, "--update", "--golden-dir", goldenDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "adults.golden"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "golden", "adults.golden"))
}
