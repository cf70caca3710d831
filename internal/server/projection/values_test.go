package projection

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/crmgraph/internal/server/graph"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
		ok    bool
		err   bool
	}{
		{name: "string", value: "A1", want: "A1", ok: true},
		{name: "empty string", value: "", ok: false},
		{name: "nil", value: nil, ok: false},
		{name: "json integer", value: json.Number("1000"), want: "1000", ok: true},
		{name: "json exponent", value: json.Number("1e3"), want: "1000", ok: true},
		{name: "json trailing zero", value: json.Number("1000.0"), want: "1000", ok: true},
		{name: "json negative", value: json.Number("-42"), want: "-42", ok: true},
		{name: "json fraction", value: json.Number("12.50"), want: "12.5", ok: true},
		{name: "json large exponent", value: json.Number("1e21"), want: "1000000000000000000000", ok: true},
		{name: "json malformed", value: json.Number("12abc"), err: true},
		{name: "int", value: 1000, want: "1000", ok: true},
		{name: "float integral", value: 1000.0, want: "1000", ok: true},
		{name: "bool", value: true, err: true},
		{name: "map", value: map[string]any{"a": 1}, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := keyString(tt.value)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericKeysConvergeOnSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer store.Close(ctx)

	engine := newTestEngine(store)

	docs := []string{
		`{"Id": 1000, "Name": "Acme"}`,
		`{"Id": 1e3, "Industry": "Retail"}`,
		`{"Id": 1000.0}`,
	}
	for _, doc := range docs {
		var record map[string]any
		dec := json.NewDecoder(strings.NewReader(doc))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&record))

		res, err := engine.Project(ctx, "Account", record)
		require.NoError(t, err)
		assert.Equal(t, "1000", res.Key)
	}

	var contact map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"Id": "K1", "AccountId": 1000.0}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&contact))
	_, err = engine.Project(ctx, "Contact", contact)
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes["Account"])

	account, err := store.GetNode(ctx, "Account", "1000")
	require.NoError(t, err)
	assert.Equal(t, "Acme", account.Properties["Name"])
	assert.Equal(t, "Retail", account.Properties["Industry"])
	require.Len(t, account.Outgoing, 1)
	assert.Equal(t, "K1", account.Outgoing[0].ToKey)
}
