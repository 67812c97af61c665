package domain

import "strings"

// IDField is the reserved field holding a stored document's identifier.
const IDField = "_id"

// Document represents a document in the database
type Document map[string]interface{}

// ID returns the document identifier, or "" when the document has not been stored yet.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Get resolves a field path. Dotted paths ("a.b.c") walk nested documents;
// a key that literally contains dots wins over traversal.
func (d Document) Get(path string) (interface{}, bool) {
	if v, ok := d[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var current interface{} = map[string]interface{}(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set assigns a value at a field path, creating intermediate documents as needed.
func (d Document) Set(path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := map[string]interface{}(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Delete removes the value at a field path. Missing paths are ignored.
func (d Document) Delete(path string) {
	if _, ok := d[path]; ok {
		delete(d, path)
		return
	}
	parts := strings.Split(path, ".")
	current := map[string]interface{}(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

// Clone returns a deep copy of the document. Nested documents and arrays are
// copied; scalar values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies nested maps and slices.
func CloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return map[string]interface{}(val.Clone())
	case map[string]interface{}:
		return map[string]interface{}(Document(val).Clone())
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// CloneAll deep-copies a slice of documents.
func CloneAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}
