package storage

import (
	"encoding/json"
	"fmt"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// Client unwraps core envelopes into Go values and errors. A success:false
// envelope becomes a *domain.StorageError carrying the core's message.
type Client struct {
	core Core
}

// NewClient wraps a core
func NewClient(core Core) *Client {
	return &Client{core: core}
}

// Core returns the wrapped core
func (c *Client) Core() Core {
	return c.core
}

// Bulk returns the core's batch interface when it has one
func (c *Client) Bulk() (BulkCore, bool) {
	bulk, ok := c.core.(BulkCore)
	return bulk, ok
}

func unwrap(op string, resp Response, out interface{}) error {
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown storage error"
		}
		return domain.NewStorageError(op, msg)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return domain.NewStorageError(op, fmt.Sprintf("malformed response data: %v", err))
	}
	return nil
}

func encode(op string, doc domain.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.NewStorageError(op, fmt.Sprintf("failed to encode document: %v", err))
	}
	return data, nil
}

// Insert stores doc and returns the id the core assigned
func (c *Client) Insert(doc domain.Document) (string, error) {
	data, err := encode("insert", doc)
	if err != nil {
		return "", err
	}
	var id string
	if err := unwrap("insert", c.core.Insert(data), &id); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the document stored under id, or nil when there is none
func (c *Client) Get(id string) (domain.Document, error) {
	var doc domain.Document
	if err := unwrap("get", c.core.Get(id), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update replaces the document stored under id. It reports false when id is unknown.
func (c *Client) Update(id string, doc domain.Document) (bool, error) {
	data, err := encode("update", doc)
	if err != nil {
		return false, err
	}
	var updated bool
	if err := unwrap("update", c.core.Update(id, data), &updated); err != nil {
		return false, err
	}
	return updated, nil
}

// Delete removes the document stored under id. It reports false when id is unknown.
func (c *Client) Delete(id string) (bool, error) {
	var deleted bool
	if err := unwrap("delete", c.core.Delete(id), &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

// ListIDs returns every stored id in the core's iteration order
func (c *Client) ListIDs() ([]string, error) {
	var ids []string
	if err := unwrap("list_ids", c.core.ListIDs(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// All loads every stored document in the core's iteration order
func (c *Client) All() ([]domain.Document, error) {
	ids, err := c.ListIDs()
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Stats returns the core's counters
func (c *Client) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	if err := unwrap("stats", c.core.Stats(), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// InsertMany stores docs through the core's batch path, or one by one with
// rollback of the already inserted documents when the core has none.
// Either every document is stored or none is.
func (c *Client) InsertMany(docs []domain.Document) ([]string, error) {
	payloads := make([][]byte, len(docs))
	for i, doc := range docs {
		data, err := encode("insert_many", doc)
		if err != nil {
			return nil, err
		}
		payloads[i] = data
	}

	if bulk, ok := c.Bulk(); ok {
		var ids []string
		if err := unwrap("insert_many", bulk.InsertMany(payloads), &ids); err != nil {
			return nil, err
		}
		return ids, nil
	}

	ids := make([]string, 0, len(docs))
	for _, data := range payloads {
		var id string
		if err := unwrap("insert_many", c.core.Insert(data), &id); err != nil {
			c.rollback(ids)
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) rollback(ids []string) {
	for _, id := range ids {
		// best effort; the original error is what the caller sees
		_ = unwrap("delete", c.core.Delete(id), nil)
	}
}

// UpdateMany replaces several documents, through the batch path when available
func (c *Client) UpdateMany(updates map[string]domain.Document, order []string) (int, error) {
	if bulk, ok := c.Bulk(); ok {
		batch := make([]DocumentUpdate, 0, len(order))
		for _, id := range order {
			data, err := encode("update_many", updates[id])
			if err != nil {
				return 0, err
			}
			batch = append(batch, DocumentUpdate{ID: id, Doc: data})
		}
		var n int
		if err := unwrap("update_many", bulk.UpdateMany(batch), &n); err != nil {
			return 0, err
		}
		return n, nil
	}

	n := 0
	for _, id := range order {
		updated, err := c.Update(id, updates[id])
		if err != nil {
			return n, err
		}
		if updated {
			n++
		}
	}
	return n, nil
}

// DeleteMany removes several documents, through the batch path when available
func (c *Client) DeleteMany(ids []string) (int, error) {
	if bulk, ok := c.Bulk(); ok {
		var n int
		if err := unwrap("delete_many", bulk.DeleteMany(ids), &n); err != nil {
			return 0, err
		}
		return n, nil
	}

	n := 0
	for _, id := range ids {
		deleted, err := c.Delete(id)
		if err != nil {
			return n, err
		}
		if deleted {
			n++
		}
	}
	return n, nil
}

// Close closes the core
func (c *Client) Close() error {
	return c.core.Close()
}
