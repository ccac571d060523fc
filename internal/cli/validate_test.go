package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchemaDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(content), 0o644))
	return dir
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_ValidSchema(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)

	out, err := executeCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema valid")
	assert.Contains(t, out, "Post -> posts")
	assert.Contains(t, out, "Author -> authors")
}

func TestValidate_ValidSchemaJSON(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)

	out, err := executeCommand(t, "--format", "json", "validate", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"Author", "Post"}, result.Records)
}

func TestValidate_InvalidSchema(t *testing.T) {
	dir := writeSchemaDir(t, `record: Post: {fields: {id: {type: "id"}}}`)

	out, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Schema invalid")
	assert.Contains(t, out, "source is required")
}

func TestValidate_UnknownFieldType(t *testing.T) {
	dir := writeSchemaDir(t, `record: Post: {source: "posts", fields: {id: {type: "varchar"}}}`)

	out, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, `unknown field type "varchar"`)
}

func TestValidate_MissingDir(t *testing.T) {
	_, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
