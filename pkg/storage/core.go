package storage

import (
	"encoding/json"
	"fmt"
)

// Response is the envelope every core call answers with. When Success is
// false, Error carries the core's message and Data is empty.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Core is the opaque document persistence the query layer is built on.
// Payloads are JSON; a stored document carries its identifier under "_id".
type Core interface {
	Insert(doc []byte) Response            // data: id
	Get(id string) Response                // data: document or null
	Update(id string, doc []byte) Response // data: bool, false when id is unknown
	Delete(id string) Response             // data: bool, false when id is unknown
	ListIDs() Response                     // data: [id]
	Stats() Response                       // data: {document_count, ...}
	Close() error
}

// DocumentUpdate pairs an id with its replacement document for bulk updates
type DocumentUpdate struct {
	ID  string          `json:"id"`
	Doc json.RawMessage `json:"doc"`
}

// BulkCore is implemented by cores with native batch operations.
// InsertMany is all-or-nothing.
type BulkCore interface {
	InsertMany(docs [][]byte) Response             // data: [id]
	UpdateMany(updates []DocumentUpdate) Response // data: number updated
	DeleteMany(ids []string) Response             // data: number deleted
}

// Limiter is implemented by cores that can bound their memory usage
type Limiter interface {
	SetMemoryLimit(bytes int64)
}

func ok(data interface{}) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return fail("failed to encode response: %v", err)
	}
	return Response{Success: true, Data: raw}
}

func fail(format string, args ...interface{}) Response {
	return Response{Success: false, Error: fmt.Sprintf(format, args...)}
}
