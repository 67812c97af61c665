package storage

import "time"

type StorageOption func(*MemoryStore)

// WithMemoryLimit bounds the encoded document bytes of each collection
func WithMemoryLimit(bytes int64) StorageOption {
	return func(store *MemoryStore) {
		store.memoryLimit = bytes
	}
}

// WithDataFile sets the snapshot file written on Close and by background saves
func WithDataFile(path string) StorageOption {
	return func(store *MemoryStore) {
		store.dataFile = path
	}
}

// WithBackgroundSave snapshots dirty collections every interval. It needs a data file.
func WithBackgroundSave(interval time.Duration) StorageOption {
	return func(store *MemoryStore) {
		store.backgroundSave = true
		store.saveInterval = interval
	}
}
