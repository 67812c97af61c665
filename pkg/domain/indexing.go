package domain

// IndexKind selects how an index treats duplicate values
type IndexKind string

const (
	// IndexHash maps each value to any number of documents
	IndexHash IndexKind = "hash"
	// IndexUnique rejects a second document with the same value
	IndexUnique IndexKind = "unique"
)

// Valid reports whether the kind is known
func (k IndexKind) Valid() bool {
	return k == IndexHash || k == IndexUnique
}

// IndexInfo describes an index on a collection field
type IndexInfo struct {
	Field   string    `json:"field"`
	Kind    IndexKind `json:"kind"`
	Entries int       `json:"entries"` // distinct indexed values
}

// IndexEngine defines the interface for indexing operations
type IndexEngine interface {
	CreateIndex(fieldName string, kind IndexKind) error
	DropIndex(fieldName string) error
	Indexes() []IndexInfo
}
