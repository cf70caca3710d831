package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/crmgraph/internal/server/graph"
	"github.com/systemshift/crmgraph/internal/server/projection"
	"github.com/systemshift/crmgraph/internal/server/registry"
)

const replayInput = `{"operation":"create","object":"Contact","record":{"Id":"K1","AccountId":"A1","LastName":"Doe"}}
{"operation":"create","object":"Case","record":{"Id":"C1","AccountId":"A1","ContactId":"K1"}}

{"operation":"create","object":"Widget","record":{"Id":"W1"}}
not json
`

func newSQLiteEngine(t *testing.T) (*projection.Engine, *graph.SQLiteStore) {
	t.Helper()
	store, err := graph.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return projection.New(registry.Default(), store), store
}

func TestReplayContinue(t *testing.T) {
	engine, store := newSQLiteEngine(t)

	summary, err := Replay(context.Background(), engine, strings.NewReader(replayInput), true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 4 records failed")

	assert.Equal(t, 2, summary.Applied)
	assert.Equal(t, 2, summary.NodeMerges)
	assert.Equal(t, 3, summary.EdgeMerges)
	assert.Equal(t, map[string]int{"unknown_type": 1, "invalid": 1}, summary.Failed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes["Account"])
	assert.Equal(t, 1, stats.Nodes["Contact"])
	assert.Equal(t, 1, stats.Nodes["Case"])
}

func TestReplayStopsAtFirstFailure(t *testing.T) {
	engine, _ := newSQLiteEngine(t)

	summary, err := Replay(context.Background(), engine, strings.NewReader(replayInput), false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
	assert.ErrorIs(t, err, projection.ErrUnknownEntityType)

	assert.Equal(t, 2, summary.Applied)
	assert.Equal(t, map[string]int{"unknown_type": 1}, summary.Failed)
}

func TestReplayIsRepeatable(t *testing.T) {
	engine, store := newSQLiteEngine(t)
	ctx := context.Background()
	valid := strings.Join(strings.Split(replayInput, "\n")[:2], "\n")

	for i := 0; i < 2; i++ {
		summary, err := Replay(ctx, engine, strings.NewReader(valid), false, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Applied)
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	total := 0
	for _, n := range stats.Edges {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, ReplaySummary{
		Applied:    3,
		NodeMerges: 3,
		EdgeMerges: 4,
		Failed:     map[string]int{"missing_key": 2, "invalid": 1},
	})
	assert.Equal(t, "applied: 3 (node merges 3, edge merges 4)\nfailed invalid: 1\nfailed missing_key: 2\n", buf.String())
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GRAPH_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "graph.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(dir, "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	dir := sqliteEnv(t)
	path := filepath.Join(dir, "changes.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(replayInput), 0o644))

	out, err := runCommand(t, dir, "replay", path, "--continue")
	require.Error(t, err)
	assert.Contains(t, out, "applied: 2 (node merges 2, edge merges 3)")
	assert.Contains(t, out, "failed unknown_type: 1")

	store, err := graph.NewSQLite(context.Background(), filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	defer store.Close(context.Background())

	node, err := store.GetNode(context.Background(), "Contact", "K1")
	require.NoError(t, err)
	assert.Equal(t, "Doe", node.Properties["LastName"])
}

func TestRegistryCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runCommand(t, dir, "registry")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "HAS_CONTACT")
	for _, typ := range registry.Default().Types() {
		assert.Contains(t, out, typ)
	}
}

func TestConstraintsCommand(t *testing.T) {
	dir := sqliteEnv(t)
	out, err := runCommand(t, dir, "constraints")
	require.NoError(t, err)
	assert.Contains(t, out, "constraints ensured for")
}
