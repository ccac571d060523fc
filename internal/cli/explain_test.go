package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain_SelectQuery(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)
	queryPath := writeQueryFile(t, `
from: Post
where:
  - field: title
    eq: hello
`)

	out, err := executeCommand(t, "--format", "json", "explain", "--schema", dir, queryPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ExplainResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "all", result.Op)
	assert.Equal(t,
		"SELECT t0.id, t0.title, t0.views, t0.author_id FROM posts AS t0 WHERE t0.title = ? ORDER BY t0.id ASC",
		result.SQL)
	assert.Equal(t, []any{"hello"}, result.Params)
	assert.Len(t, result.Fingerprint, 64)
	assert.Equal(t, []string{"posts"}, result.Sources)
	assert.Equal(t, 1, result.Leaves)
}

func TestExplain_DollarPlaceholdersAndPrefix(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)
	queryPath := writeQueryFile(t, `
from: Post
where:
  - field: id
    in: [1, 2]
select:
  fields: [title]
`)

	out, err := executeCommand(t, "--format", "json",
		"explain", "--schema", dir, "--placeholder", "dollar", "--prefix", "tenant_a", queryPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := json.Marshal(resp.Data)
	var result ExplainResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t,
		"SELECT t0.title FROM tenant_a.posts AS t0 WHERE t0.id IN ($1, $2) ORDER BY t0.id ASC",
		result.SQL)
}

func TestExplain_UpdateOp(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)
	queryPath := writeQueryFile(t, `
from: Post
where:
  - field: id
    eq: 1
updates:
  - field: views
    inc: 1
`)

	out, err := executeCommand(t, "--format", "json", "explain", "--schema", dir, "--op", "update_all", queryPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := json.Marshal(resp.Data)
	var result ExplainResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "update_all", result.Op)
	assert.Equal(t, "UPDATE posts SET views = views + ? WHERE id = ?", result.SQL)
	assert.Zero(t, result.Leaves)
}

func TestExplain_ErrorsAreExitErrors(t *testing.T) {
	dir := writeSchemaDir(t, testSchemaCUE)

	t.Run("missing schema dir", func(t *testing.T) {
		queryPath := writeQueryFile(t, "from: Post\n")
		_, err := executeCommand(t, "explain", queryPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("bad operation", func(t *testing.T) {
		queryPath := writeQueryFile(t, "from: Post\n")
		_, err := executeCommand(t, "explain", "--schema", dir, "--op", "upsert", queryPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("bad placeholder style", func(t *testing.T) {
		queryPath := writeQueryFile(t, "from: Post\n")
		_, err := executeCommand(t, "explain", "--schema", dir, "--placeholder", "at", queryPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("update without update expressions", func(t *testing.T) {
		queryPath := writeQueryFile(t, "from: Post\n")
		_, err := executeCommand(t, "explain", "--schema", dir, "--op", "update_all", queryPath)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("unknown record type", func(t *testing.T) {
		queryPath := writeQueryFile(t, "from: Ghost\n")
		_, err := executeCommand(t, "explain", "--schema", dir, queryPath)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})
}
