package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFixture(t *testing.T, dir, fixture, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "internal", "reconcile", "testdata", fixture))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCorrectCommand(t *testing.T) {
	dir := t.TempDir()
	input := copyFixture(t, dir, "week_split.xml", "facture.xml")

	out, err := execute(t, "correct", input)
	require.NoError(t, err)

	assert.Contains(t, out, "Hours:         42.50 -> 8.00")
	assert.Contains(t, out, "Total HT:      1194.83 -> 224.73")
	assert.Contains(t, out, "Verification:  OK")

	written := filepath.Join(dir, "corrected_facture.xml")
	assert.Contains(t, out, written)

	got, err := os.ReadFile(written)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "..", "internal", "reconcile", "testdata", "week_split_corrected.xml"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCorrectCommand_OutputAndJSON(t *testing.T) {
	dir := t.TempDir()
	input := copyFixture(t, dir, "week_split.xml", "in.xml")
	output := filepath.Join(dir, "fixed.xml")

	out, err := execute(t, "correct", input, "-o", output, "--json")
	require.NoError(t, err)
	assert.FileExists(t, output)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, true, result["changed"])
}

func TestCorrectCommand_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	input := copyFixture(t, dir, "week_split_corrected.xml", "done.xml")

	out, err := execute(t, "correct", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Discrepancy:   none")
	assert.NoFileExists(t, filepath.Join(dir, "corrected_done.xml"))
}

func TestCorrectCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<Invoice>"), 0644))

	_, err := execute(t, "correct", bad)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "corrected_bad.xml"))

	_, err = execute(t, "correct", filepath.Join(dir, "absent.xml"))
	assert.Error(t, err)

	_, err = execute(t, "correct")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	work := t.TempDir()
	inbox := filepath.Join(work, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0755))
	copyFixture(t, inbox, "week_split.xml", "a.xml")
	copyFixture(t, inbox, "week_split_latin1.xml", "b.xml")
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "c.xml"), []byte("not xml"), 0644))

	t.Setenv("INVOICEFIX_DB_PATH", filepath.Join(work, "history.db"))
	outDir := filepath.Join(work, "out")
	reportPath := filepath.Join(work, "summary.xlsx")

	out, err := execute(t, "batch", inbox, "--out", outDir, "--report", reportPath, "-w", "2")
	require.Error(t, err, "one document is unreadable")
	assert.Contains(t, err.Error(), "1 of 3")

	assert.Contains(t, out, "3 document(s), 1 failed")
	assert.FileExists(t, reportPath)
	assert.FileExists(t, filepath.Join(work, "history.db"))

	runs, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, runs, 2, "one run directory per corrected document")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}
