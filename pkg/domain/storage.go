package domain

// CollectionEngine is the collection-level API served over HTTP.
// This is the core business interface that implementations must conform to
type CollectionEngine interface {
	InsertOne(doc Document) (string, error)
	InsertMany(docs []Document) ([]string, error)
	FindWithOptions(filter map[string]interface{}, options *FindOptions) ([]Document, error)
	FindOne(filter map[string]interface{}) (Document, error)
	GetByID(id string) (Document, error)
	UpdateOne(filter, update map[string]interface{}) (UpdateResult, error)
	UpdateMany(filter, update map[string]interface{}) (UpdateResult, error)
	DeleteOne(filter map[string]interface{}) (DeleteResult, error)
	DeleteMany(filter map[string]interface{}) (DeleteResult, error)
	Count(filter map[string]interface{}) (int, error)
	Distinct(field string, filter map[string]interface{}) ([]interface{}, error)
	Aggregate(pipeline []map[string]interface{}) ([]Document, error)
	Stats() (CollectionStats, error)
	IndexEngine
}

// DatabaseEngine resolves named collections
type DatabaseEngine interface {
	Collection(name string) (CollectionEngine, error)
	CollectionNames() []string
}
