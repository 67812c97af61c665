package domain

import "fmt"

// SortField is one key of a multi-key sort. Direction is 1 (ascending) or -1 (descending).
type SortField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// FindOptions shapes the result of a find. Sort is applied first, then Skip,
// then Limit, then Projection.
type FindOptions struct {
	Sort       []SortField     `json:"sort,omitempty"`
	Skip       int             `json:"skip,omitempty"`
	Limit      int             `json:"limit,omitempty"` // 0 means no limit
	Projection map[string]bool `json:"projection,omitempty"`
}

// Validate validates find options
func (o *FindOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.Skip < 0 {
		return fmt.Errorf("skip cannot be negative")
	}
	if o.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	for _, s := range o.Sort {
		if s.Field == "" {
			return fmt.Errorf("sort field cannot be empty")
		}
		if s.Direction != 1 && s.Direction != -1 {
			return fmt.Errorf("sort direction for %s must be 1 or -1, got %d", s.Field, s.Direction)
		}
	}
	return nil
}

// IncludedFields returns the fields a projection keeps, or nil when the
// projection selects nothing (full documents are returned then).
func (o *FindOptions) IncludedFields() []string {
	if o == nil {
		return nil
	}
	var fields []string
	for field, include := range o.Projection {
		if include {
			fields = append(fields, field)
		}
	}
	return fields
}
