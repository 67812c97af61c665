package domain

// UpdateResult reports the outcome of updateOne/updateMany
type UpdateResult struct {
	MatchedCount  int `json:"matched_count"`
	ModifiedCount int `json:"modified_count"`
}

// DeleteResult reports the outcome of deleteOne/deleteMany
type DeleteResult struct {
	DeletedCount int `json:"deleted_count"`
}

// CacheStats describes the query result cache
type CacheStats struct {
	Enabled   bool    `json:"enabled"`
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// CollectionStats combines storage counters, cache statistics and index definitions
type CollectionStats struct {
	Name          string                 `json:"name"`
	DocumentCount int64                  `json:"document_count"`
	Storage       map[string]interface{} `json:"storage"`
	Cache         CacheStats             `json:"cache"`
	Indexes       []IndexInfo            `json:"indexes"`
}
