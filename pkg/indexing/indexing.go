package indexing

import (
	"sort"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// IndexEngine implements domain.IndexEngine for a single collection.
// It is not safe for concurrent use; the owning collection serializes access.
type IndexEngine struct {
	indexes map[string]*Index // field name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]*Index),
	}
}

// Index stores a mapping from a field's value to document IDs.
// Only scalar values are indexed; documents and arrays never satisfy an
// equality lookup, so leaving them out keeps lookups exact.
type Index struct {
	Field    string
	Kind     domain.IndexKind
	Inverted map[string]map[string]struct{}
}

// NewIndex creates an index on a specific field.
func NewIndex(field string, kind domain.IndexKind) *Index {
	return &Index{
		Field:    field,
		Kind:     kind,
		Inverted: make(map[string]map[string]struct{}),
	}
}

// Query returns document IDs that match a given value in the indexed field, in ascending order.
func (idx *Index) Query(value interface{}) []string {
	key, ok := domain.ScalarKey(value)
	if !ok {
		return nil
	}
	set := idx.Inverted[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateIndex updates index after an insert/update/delete operation.
// oldDoc is nil for inserts, newDoc is nil for deletes.
func (idx *Index) UpdateIndex(docID string, oldDoc, newDoc domain.Document) {
	oldKey, hadOld := idx.keyOf(oldDoc)
	newKey, hasNew := idx.keyOf(newDoc)
	if hadOld && hasNew && oldKey == newKey {
		return
	}

	// Remove old entry
	if hadOld {
		if set := idx.Inverted[oldKey]; set != nil {
			delete(set, docID)
			if len(set) == 0 {
				delete(idx.Inverted, oldKey)
			}
		}
	}
	// Add new entry
	if hasNew {
		set := idx.Inverted[newKey]
		if set == nil {
			set = make(map[string]struct{})
			idx.Inverted[newKey] = set
		}
		set[docID] = struct{}{}
	}
}

// Conflicts reports whether storing doc under docID would break a unique index.
func (idx *Index) Conflicts(docID string, doc domain.Document) bool {
	if idx.Kind != domain.IndexUnique {
		return false
	}
	key, ok := idx.keyOf(doc)
	if !ok {
		return false
	}
	for id := range idx.Inverted[key] {
		if id != docID {
			return true
		}
	}
	return false
}

func (idx *Index) keyOf(doc domain.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	val, ok := doc.Get(idx.Field)
	if !ok {
		return "", false
	}
	return domain.ScalarKey(val)
}

// CreateIndex creates an empty index on a field. Creating an index that
// already exists with the same kind is a no-op; a different kind is a
// configuration error.
func (ie *IndexEngine) CreateIndex(fieldName string, kind domain.IndexKind) error {
	if fieldName == "" {
		return domain.Configurationf("index field name cannot be empty")
	}
	if kind == "" {
		kind = domain.IndexHash
	}
	if !kind.Valid() {
		return domain.Configurationf("unknown index kind %q for field %s", kind, fieldName)
	}

	// Check if index already exists
	if existing, exists := ie.indexes[fieldName]; exists {
		if existing.Kind != kind {
			return domain.Configurationf("index on field %s already exists with kind %s", fieldName, existing.Kind)
		}
		return nil
	}

	ie.indexes[fieldName] = NewIndex(fieldName, kind)
	return nil
}

// BuildIndex creates an index and populates it from the given documents.
// A unique index that finds duplicate values is not created.
func (ie *IndexEngine) BuildIndex(fieldName string, kind domain.IndexKind, docs []domain.Document) error {
	if _, exists := ie.indexes[fieldName]; exists {
		return ie.CreateIndex(fieldName, kind)
	}
	if err := ie.CreateIndex(fieldName, kind); err != nil {
		return err
	}

	index := ie.indexes[fieldName]
	for _, doc := range docs {
		id := doc.ID()
		if index.Conflicts(id, doc) {
			delete(ie.indexes, fieldName)
			val, _ := doc.Get(fieldName)
			return domain.Configurationf("cannot create unique index on %s: duplicate value %v", fieldName, val)
		}
		index.UpdateIndex(id, nil, doc)
	}
	return nil
}

// DropIndex removes an index
func (ie *IndexEngine) DropIndex(fieldName string) error {
	if _, exists := ie.indexes[fieldName]; !exists {
		return domain.Configurationf("index on field %s does not exist", fieldName)
	}
	delete(ie.indexes, fieldName)
	return nil
}

// GetIndex returns the index on a field
func (ie *IndexEngine) GetIndex(fieldName string) (*Index, bool) {
	index, ok := ie.indexes[fieldName]
	return index, ok
}

// HasIndex reports whether a field is indexed
func (ie *IndexEngine) HasIndex(fieldName string) bool {
	_, ok := ie.indexes[fieldName]
	return ok
}

// Indexes returns all index definitions sorted by field
func (ie *IndexEngine) Indexes() []domain.IndexInfo {
	infos := make([]domain.IndexInfo, 0, len(ie.indexes))
	for _, index := range ie.indexes {
		infos = append(infos, domain.IndexInfo{
			Field:   index.Field,
			Kind:    index.Kind,
			Entries: len(index.Inverted),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Field < infos[j].Field })
	return infos
}

// CandidateIDs returns the ids holding value in field. The boolean is false
// when the field has no index.
func (ie *IndexEngine) CandidateIDs(fieldName string, value interface{}) ([]string, bool) {
	index, ok := ie.indexes[fieldName]
	if !ok {
		return nil, false
	}
	return index.Query(value), true
}

// CheckUnique returns a configuration error if doc would duplicate a value
// held by another document in a unique index.
func (ie *IndexEngine) CheckUnique(docID string, doc domain.Document) error {
	for _, index := range ie.indexes {
		if index.Conflicts(docID, doc) {
			val, _ := doc.Get(index.Field)
			return domain.Configurationf("duplicate value %v for unique index on %s", val, index.Field)
		}
	}
	return nil
}

// OnInsert indexes a newly stored document
func (ie *IndexEngine) OnInsert(docID string, doc domain.Document) {
	ie.updateIndexes(docID, nil, doc)
}

// OnUpdate moves a document between value sets after its content changed
func (ie *IndexEngine) OnUpdate(docID string, oldDoc, newDoc domain.Document) {
	ie.updateIndexes(docID, oldDoc, newDoc)
}

// OnDelete removes a deleted document from every index
func (ie *IndexEngine) OnDelete(docID string, doc domain.Document) {
	ie.updateIndexes(docID, doc, nil)
}

// updateIndexes updates all indexes when a document changes
func (ie *IndexEngine) updateIndexes(docID string, oldDoc, newDoc domain.Document) {
	for _, index := range ie.indexes {
		index.UpdateIndex(docID, oldDoc, newDoc)
	}
}

// CheckUniqueBatch is CheckUnique for documents inserted together: a value
// repeated inside the batch is a violation too.
func (ie *IndexEngine) CheckUniqueBatch(docs []domain.Document) error {
	for _, index := range ie.indexes {
		if index.Kind != domain.IndexUnique {
			continue
		}
		seen := make(map[string]struct{}, len(docs))
		for _, doc := range docs {
			if index.Conflicts(doc.ID(), doc) {
				val, _ := doc.Get(index.Field)
				return domain.Configurationf("duplicate value %v for unique index on %s", val, index.Field)
			}
			key, ok := index.keyOf(doc)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				val, _ := doc.Get(index.Field)
				return domain.Configurationf("duplicate value %v for unique index on %s", val, index.Field)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}
