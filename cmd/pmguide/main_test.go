package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedKnowledge = "../../knowledge/privacy_mark.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pmguide version 1.0.0\n", out)
}

func TestKBValidate(t *testing.T) {
	out, err := execute(t, "kb", "validate", shippedKnowledge)
	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge base is valid!")
	assert.Contains(t, out, "7 steps")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps: []\n"), 0o644))
	out, err = execute(t, "kb", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "- ")
}

func TestKBFAQ(t *testing.T) {
	out, err := execute(t, "kb", "faq", "--knowledge", shippedKnowledge, "費用を知りたい")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: ")
	assert.Contains(t, out, "A: ")

	out, err = execute(t, "kb", "faq", "--knowledge", shippedKnowledge, "天気")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching FAQ entry.")
}

func TestKBFlow(t *testing.T) {
	out, err := execute(t, "kb", "flow", "--knowledge", shippedKnowledge)
	require.NoError(t, err)
	assert.Contains(t, out, `"totalDuration"`)

	out, err = execute(t, "kb", "flow", "--knowledge", shippedKnowledge, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "preparation --> document_preparation")

	_, err = execute(t, "kb", "flow", "--knowledge", shippedKnowledge, "--format", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSessionCommands_FileStore(t *testing.T) {
	t.Setenv("SESSION_DIR", t.TempDir())

	out, err := execute(t, "session", "ls", "--store", "file")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	_, err = execute(t, "session", "inspect", "--store", "file", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "session", "rm", "--store", "file")
	assert.ErrorContains(t, err, "--all")
}

func TestUnknownStoreRejected(t *testing.T) {
	_, err := execute(t, "session", "ls", "--store", "mongo")
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
