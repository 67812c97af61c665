package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// record is a stored document, msgpack encoded, with its insertion sequence
type record struct {
	seq  uint64
	data []byte
}

// MemoryCore is an in-memory Core for a single collection. Documents are
// kept msgpack encoded; the encoded size is what the memory limit counts.
type MemoryCore struct {
	mu        sync.RWMutex
	name      string
	docs      map[string]*record
	nextSeq   uint64
	idCounter int64
	bytes     int64
	limit     int64 // 0 means unlimited
	dirty     bool
	closed    bool
}

// NewMemoryCore creates an empty in-memory core
func NewMemoryCore(name string) *MemoryCore {
	return &MemoryCore{
		name: name,
		docs: make(map[string]*record),
	}
}

// SetMemoryLimit bounds the encoded size of all stored documents. 0 disables the limit.
func (c *MemoryCore) SetMemoryLimit(bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = bytes
}

// Insert stores a document. A string _id is kept when unused; without one
// the next numeric id is assigned.
func (c *MemoryCore) Insert(doc []byte) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	id, data, err := c.prepare(doc, nil, 0)
	if err != nil {
		return fail("%v", err)
	}
	c.put(id, data)
	return ok(id)
}

// InsertMany stores every document or none of them
func (c *MemoryCore) InsertMany(docs [][]byte) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	counter := c.idCounter
	reserved := make(map[string]struct{}, len(docs))
	ids := make([]string, 0, len(docs))
	encoded := make([][]byte, 0, len(docs))
	var pending int64
	for i, doc := range docs {
		id, data, err := c.prepare(doc, reserved, pending)
		if err != nil {
			c.idCounter = counter
			return fail("document %d: %v", i, err)
		}
		reserved[id] = struct{}{}
		pending += int64(len(data))
		ids = append(ids, id)
		encoded = append(encoded, data)
	}

	for i, id := range ids {
		c.put(id, encoded[i])
	}
	return ok(ids)
}

// Get returns the stored document, or null
func (c *MemoryCore) Get(id string) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	rec, exists := c.docs[id]
	if !exists {
		return ok(nil)
	}
	doc, err := decodeRecord(rec.data)
	if err != nil {
		return fail("failed to decode document %s: %v", id, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fail("failed to encode document %s: %v", id, err)
	}
	return ok(json.RawMessage(data))
}

// Update replaces the document stored under id, keeping its position
func (c *MemoryCore) Update(id string, doc []byte) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	updated, err := c.replace(id, doc, 0)
	if err != nil {
		return fail("%v", err)
	}
	return ok(updated)
}

// UpdateMany replaces several documents. Unknown ids are skipped.
func (c *MemoryCore) UpdateMany(updates []DocumentUpdate) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	n := 0
	for _, u := range updates {
		updated, err := c.replace(u.ID, u.Doc, 0)
		if err != nil {
			return fail("%v", err)
		}
		if updated {
			n++
		}
	}
	return ok(n)
}

// Delete removes the document stored under id
func (c *MemoryCore) Delete(id string) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}
	return ok(c.remove(id))
}

// DeleteMany removes several documents. Unknown ids are skipped.
func (c *MemoryCore) DeleteMany(ids []string) Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}

	n := 0
	for _, id := range ids {
		if c.remove(id) {
			n++
		}
	}
	return ok(n)
}

// ListIDs returns ids in insertion order
func (c *MemoryCore) ListIDs() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}
	return ok(c.orderedIDs())
}

// Stats reports document count and memory usage
func (c *MemoryCore) Stats() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fail("collection %s is closed", c.name)
	}
	return ok(map[string]interface{}{
		"backend":        "memory",
		"collection":     c.name,
		"document_count": len(c.docs),
		"memory_bytes":   c.bytes,
		"memory_limit":   c.limit,
	})
}

// Close marks the core closed; further calls fail
func (c *MemoryCore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Len returns the number of stored documents
func (c *MemoryCore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *MemoryCore) orderedIDs() []string {
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.docs[ids[i]].seq < c.docs[ids[j]].seq
	})
	return ids
}

// prepare decodes a payload, settles its id and encodes it for storage.
// reserved and pending account for documents of a batch not yet committed.
func (c *MemoryCore) prepare(raw []byte, reserved map[string]struct{}, pending int64) (string, []byte, error) {
	doc, err := decodePayload(raw)
	if err != nil {
		return "", nil, err
	}

	taken := func(id string) bool {
		if _, exists := c.docs[id]; exists {
			return true
		}
		_, exists := reserved[id]
		return exists
	}

	var id string
	if rawID, present := doc[domain.IDField]; present {
		s, isString := rawID.(string)
		if !isString || s == "" {
			return "", nil, fmt.Errorf("_id must be a non-empty string")
		}
		if taken(s) {
			return "", nil, fmt.Errorf("duplicate document id: %s", s)
		}
		id = s
	} else {
		for {
			c.idCounter++
			id = strconv.FormatInt(c.idCounter, 10)
			if !taken(id) {
				break
			}
		}
		doc[domain.IDField] = id
	}

	data, err := msgpack.Marshal(map[string]interface{}(doc))
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := c.checkLimit(pending + int64(len(data))); err != nil {
		return "", nil, err
	}
	return id, data, nil
}

func (c *MemoryCore) replace(id string, raw []byte, pending int64) (bool, error) {
	rec, exists := c.docs[id]
	if !exists {
		return false, nil
	}
	doc, err := decodePayload(raw)
	if err != nil {
		return false, err
	}
	doc[domain.IDField] = id

	data, err := msgpack.Marshal(map[string]interface{}(doc))
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := c.checkLimit(pending + int64(len(data)) - int64(len(rec.data))); err != nil {
		return false, err
	}

	c.bytes += int64(len(data)) - int64(len(rec.data))
	rec.data = data
	c.dirty = true
	return true, nil
}

func (c *MemoryCore) checkLimit(extra int64) error {
	if c.limit > 0 && c.bytes+extra > c.limit {
		return fmt.Errorf("memory limit exceeded: %d bytes would exceed limit of %d bytes", c.bytes+extra, c.limit)
	}
	return nil
}

func (c *MemoryCore) put(id string, data []byte) {
	c.nextSeq++
	c.docs[id] = &record{seq: c.nextSeq, data: data}
	c.bytes += int64(len(data))
	c.dirty = true
}

func (c *MemoryCore) remove(id string) bool {
	rec, exists := c.docs[id]
	if !exists {
		return false
	}
	c.bytes -= int64(len(rec.data))
	delete(c.docs, id)
	c.dirty = true
	return true
}

func decodePayload(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("invalid document: expected a JSON object")
	}
	return doc, nil
}

func decodeRecord(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
