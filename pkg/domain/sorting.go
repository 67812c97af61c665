package domain

import "sort"

// SortDocuments sorts docs in place, stably, by the given keys in order.
// A missing field sorts like null.
func SortDocuments(docs []Document, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, field := range fields {
			vi, _ := docs[i].Get(field.Field)
			vj, _ := docs[j].Get(field.Field)
			cmp := CompareValues(vi, vj)
			if cmp == 0 {
				continue
			}
			if field.Direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// ProjectFields returns a copy of doc holding only the listed fields and _id.
func ProjectFields(doc Document, fields []string) Document {
	projected := make(Document, len(fields)+1)
	if id, ok := doc[IDField]; ok {
		projected[IDField] = id
	}
	for _, field := range fields {
		if value, ok := doc.Get(field); ok {
			projected.Set(field, CloneValue(value))
		}
	}
	return projected
}

// Page applies skip then limit. A limit of 0 means no limit.
func Page(docs []Document, skip, limit int) []Document {
	if skip > 0 {
		if skip >= len(docs) {
			return []Document{}
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
