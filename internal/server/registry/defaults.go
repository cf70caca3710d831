package registry

// Built-in Salesforce object types
const (
	TypeAccount  = "Account"
	TypeContact  = "Contact"
	TypeProduct  = "Product"
	TypeCase     = "Case"
	TypeFeedItem = "FeedItem"
	TypeNote     = "Note"
)

// DefaultKeyField is the Salesforce record Id field
const DefaultKeyField = "Id"

// DefaultSpecs returns the built-in entity table
func DefaultSpecs() []EntitySpec {
	return []EntitySpec{
		{Type: TypeAccount, Label: "Account", KeyField: DefaultKeyField},
		{
			Type: TypeContact, Label: "Contact", KeyField: DefaultKeyField,
			References: []Reference{
				{Field: "AccountId", TargetLabel: "Account", RelType: "HAS_CONTACT"},
			},
		},
		{Type: TypeProduct, Label: "Product", KeyField: DefaultKeyField},
		{
			Type: TypeCase, Label: "Case", KeyField: DefaultKeyField,
			References: []Reference{
				{Field: "AccountId", TargetLabel: "Account", RelType: "HAS_CASE"},
				{Field: "ContactId", TargetLabel: "Contact", RelType: "HAS_CASE"},
				{Field: "ProductId", TargetLabel: "Product", RelType: "HAS_CASE"},
			},
		},
		{
			Type: TypeFeedItem, Label: "FeedItem", KeyField: DefaultKeyField,
			References: []Reference{
				{Field: "ParentId", TargetLabel: "Case", RelType: "HAS_FEEDITEM"},
			},
		},
		{
			Type: TypeNote, Label: "Note", KeyField: DefaultKeyField,
			References: []Reference{
				{Field: "ParentId", TargetLabel: "Case", RelType: "HAS_NOTE"},
			},
		},
	}
}

// Default returns a registry holding only the built-in entity table
func Default() *Registry {
	r, err := New(DefaultSpecs()...)
	if err != nil {
		panic("registry: invalid built-in table: " + err.Error())
	}
	return r
}
