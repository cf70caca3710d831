package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{"Account", "Case", "Contact", "FeedItem", "Note", "Product"}, r.Types())

	cs, ok := r.Lookup(TypeCase)
	require.True(t, ok)
	assert.Equal(t, "Case", cs.Label)
	assert.Equal(t, "Id", cs.KeyField)
	require.Len(t, cs.References, 3)
	assert.Equal(t, Reference{Field: "AccountId", TargetLabel: "Account", RelType: "HAS_CASE"}, cs.References[0])
	assert.Equal(t, Reference{Field: "ProductId", TargetLabel: "Product", RelType: "HAS_CASE"}, cs.References[2])

	fi, ok := r.Lookup(TypeFeedItem)
	require.True(t, ok)
	assert.Equal(t, []Reference{{Field: "ParentId", TargetLabel: "Case", RelType: "HAS_FEEDITEM"}}, fi.References)

	_, ok = r.Lookup("Opportunity")
	assert.False(t, ok)
	_, ok = r.Lookup("account")
	assert.False(t, ok, "lookup is case sensitive")
}

func TestLookupReturnsCopy(t *testing.T) {
	r := Default()

	cs, _ := r.Lookup(TypeContact)
	cs.References[0].RelType = "MUTATED"

	again, _ := r.Lookup(TypeContact)
	assert.Equal(t, "HAS_CONTACT", again.References[0].RelType)
}

func TestNewRejectsUnsafeNames(t *testing.T) {
	tests := []struct {
		name string
		spec EntitySpec
	}{
		{"missing type", EntitySpec{Label: "X", KeyField: "Id"}},
		{"label with space", EntitySpec{Type: "X", Label: "Bad Label", KeyField: "Id"}},
		{"cypher injection", EntitySpec{Type: "X", Label: "X}) DETACH DELETE n //", KeyField: "Id"}},
		{"missing key", EntitySpec{Type: "X", Label: "X"}},
		{"bad rel type", EntitySpec{Type: "X", Label: "X", KeyField: "Id",
			References: []Reference{{Field: "P", TargetLabel: "Y", RelType: "HAS-X"}}}},
		{"reference on key", EntitySpec{Type: "X", Label: "X", KeyField: "Id",
			References: []Reference{{Field: "Id", TargetLabel: "Y", RelType: "HAS_X"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestLabels(t *testing.T) {
	r, err := New(EntitySpec{
		Type: "Opportunity", Label: "Opportunity", KeyField: "Id",
		References: []Reference{{Field: "CampaignId", TargetLabel: "Campaign", RelType: "HAS_OPPORTUNITY"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Campaign", "Opportunity"}, r.Labels())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	doc := `
entities:
  - type: Opportunity
    references:
      - field: AccountId
        target_label: Account
        rel_type: HAS_OPPORTUNITY
  - type: Note
    label: Note
    key_field: Id
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	opp, ok := r.Lookup("Opportunity")
	require.True(t, ok)
	assert.Equal(t, "Opportunity", opp.Label)
	assert.Equal(t, DefaultKeyField, opp.KeyField)
	assert.Len(t, opp.References, 1)

	note, ok := r.Lookup(TypeNote)
	require.True(t, ok)
	assert.Empty(t, note.References, "file entry replaces the built-in one")

	_, ok = r.Lookup(TypeAccount)
	assert.True(t, ok)
}

func TestLoadWithoutFile(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Len(t, r.Types(), 6)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewRejectsDuplicateTypes(t *testing.T) {
	spec := EntitySpec{Type: "Opportunity", Label: "Opportunity", KeyField: "Id"}
	_, err := New(spec, spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type")
}

func TestLoadRejectsDuplicatesWithinFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	doc := `
entities:
  - type: Opportunity
  - type: Opportunity
    key_field: OpportunityId
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type Opportunity")
}

func TestLoadOverridesBuiltInInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	doc := `
entities:
  - type: Account
    key_field: AccountNumber
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Types(), 6)

	account, ok := r.Lookup(TypeAccount)
	require.True(t, ok)
	assert.Equal(t, "AccountNumber", account.KeyField)
}
