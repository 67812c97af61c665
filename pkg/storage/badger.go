package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// BadgerStore persists every collection in one Badger database under
// doc:{collection}:{id} keys.
type BadgerStore struct {
	db *badger.DB

	mu          sync.Mutex
	collections map[string]*BadgerCore
}

// OpenBadgerStore opens (or creates) a Badger database at path. An empty
// path opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerStore{db: db, collections: make(map[string]*BadgerCore)}, nil
}

// Collection returns the core of a collection
func (s *BadgerStore) Collection(name string) (Core, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if strings.Contains(name, ":") {
		return nil, fmt.Errorf("collection name cannot contain ':'")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if core, exists := s.collections[name]; exists {
		return core, nil
	}
	core := &BadgerCore{db: s.db, name: name}
	s.collections[name] = core
	return core, nil
}

// Names lists collections that hold at least one document or were opened
func (s *BadgerStore) Names() []string {
	seen := make(map[string]struct{})
	s.mu.Lock()
	for name := range s.collections {
		seen[name] = struct{}{}
	}
	s.mu.Unlock()

	_ = s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("doc:")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if name, ok := collectionOfKey(it.Item().Key()); ok {
				seen[name] = struct{}{}
			}
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// BadgerCore is a Core over one collection of a BadgerStore. Generated ids
// are UUIDv7, so key order follows insertion order for generated ids.
type BadgerCore struct {
	db   *badger.DB
	name string
}

func (c *BadgerCore) key(id string) []byte {
	return []byte(makeDocKey(c.name, id))
}

func (c *BadgerCore) prefix() []byte {
	return []byte(fmt.Sprintf("doc:%s:", c.name))
}

// Insert stores a document, generating an id when it has none
func (c *BadgerCore) Insert(doc []byte) Response {
	var id string
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		id, err = c.insertTxn(txn, doc, nil)
		return err
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(id)
}

// InsertMany stores every document in a single transaction
func (c *BadgerCore) InsertMany(docs [][]byte) Response {
	ids := make([]string, 0, len(docs))
	err := c.db.Update(func(txn *badger.Txn) error {
		reserved := make(map[string]struct{}, len(docs))
		for i, doc := range docs {
			id, err := c.insertTxn(txn, doc, reserved)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			reserved[id] = struct{}{}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(ids)
}

func (c *BadgerCore) insertTxn(txn *badger.Txn, raw []byte, reserved map[string]struct{}) (string, error) {
	doc, err := decodePayload(raw)
	if err != nil {
		return "", err
	}

	id, present := doc[domain.IDField].(string)
	if _, hasID := doc[domain.IDField]; hasID && (!present || id == "") {
		return "", fmt.Errorf("_id must be a non-empty string")
	}
	if !present {
		generated, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		id = generated.String()
		doc[domain.IDField] = id
	}

	if _, dup := reserved[id]; dup {
		return "", fmt.Errorf("duplicate document id: %s", id)
	}
	if _, err := txn.Get(c.key(id)); err == nil {
		return "", fmt.Errorf("duplicate document id: %s", id)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return "", err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	if err := txn.Set(c.key(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the stored document, or null
func (c *BadgerCore) Get(id string) Response {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ok(nil)
	}
	if err != nil {
		return fail("%v", err)
	}
	return ok(json.RawMessage(data))
}

// Update replaces the document stored under id
func (c *BadgerCore) Update(id string, doc []byte) Response {
	var updated bool
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		updated, err = c.updateTxn(txn, id, doc)
		return err
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(updated)
}

// UpdateMany replaces several documents in one transaction
func (c *BadgerCore) UpdateMany(updates []DocumentUpdate) Response {
	n := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, u := range updates {
			updated, err := c.updateTxn(txn, u.ID, u.Doc)
			if err != nil {
				return err
			}
			if updated {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(n)
}

func (c *BadgerCore) updateTxn(txn *badger.Txn, id string, raw []byte) (bool, error) {
	if _, err := txn.Get(c.key(id)); errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	doc, err := decodePayload(raw)
	if err != nil {
		return false, err
	}
	doc[domain.IDField] = id
	data, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}
	return true, txn.Set(c.key(id), data)
}

// Delete removes the document stored under id
func (c *BadgerCore) Delete(id string) Response {
	var deleted bool
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		deleted, err = c.deleteTxn(txn, id)
		return err
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(deleted)
}

// DeleteMany removes several documents in one transaction
func (c *BadgerCore) DeleteMany(ids []string) Response {
	n := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			deleted, err := c.deleteTxn(txn, id)
			if err != nil {
				return err
			}
			if deleted {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(n)
}

func (c *BadgerCore) deleteTxn(txn *badger.Txn, id string) (bool, error) {
	if _, err := txn.Get(c.key(id)); errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, txn.Delete(c.key(id))
}

// ListIDs returns ids in key order
func (c *BadgerCore) ListIDs() Response {
	ids := make([]string, 0)
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := c.prefix()
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok(ids)
}

// Stats reports the document count and the database size
func (c *BadgerCore) Stats() Response {
	count := 0
	var size int64
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := c.prefix()
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
			size += it.Item().ValueSize()
		}
		return nil
	})
	if err != nil {
		return fail("%v", err)
	}
	lsm, vlog := c.db.Size()
	return ok(map[string]interface{}{
		"backend":        "badger",
		"collection":     c.name,
		"document_count": count,
		"document_bytes": size,
		"lsm_bytes":      lsm,
		"vlog_bytes":     vlog,
	})
}

// Close is a no-op; the store owns the database
func (c *BadgerCore) Close() error {
	return nil
}

func makeDocKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

// collectionOfKey extracts the collection from a doc:{collection}:{id} key.
// Collection names must not contain ':'.
func collectionOfKey(key []byte) (string, bool) {
	name, _, found := strings.Cut(string(key[len("doc:"):]), ":")
	return name, found
}
