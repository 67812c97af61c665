package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// SaveToFile writes every collection to a single snapshot file. The file is
// written to a temporary path first and renamed into place.
func (s *MemoryStore) SaveToFile(filename string) error {
	storageData := NewStorageData()
	storageData.Metadata["saved_at"] = time.Now().UTC().Format(time.RFC3339)

	s.mu.RLock()
	cores := make([]*MemoryCore, 0, len(s.collections))
	for _, core := range s.collections {
		cores = append(cores, core)
	}
	s.mu.RUnlock()

	for _, core := range cores {
		core.mu.Lock()
		data := &CollectionData{IDCounter: core.idCounter}
		for _, id := range core.orderedIDs() {
			data.Records = append(data.Records, SnapshotRecord{ID: id, Data: core.docs[id].data})
		}
		core.dirty = false
		storageData.Collections[core.name] = data
		core.mu.Unlock()
	}

	msgpackData, err := msgpack.Marshal(storageData)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	payload := msgpackData
	flags := uint8(0)
	compressedData := make([]byte, lz4.CompressBlockBound(len(msgpackData)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(msgpackData, compressedData, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	// n == 0 means the data is not compressible
	if n > 0 {
		payload = compressedData[:n]
		flags = FlagCompressed
	}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, flags, uint64(len(msgpackData))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	buf.Write(payload)

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// LoadFromFile replaces the store's collections with the snapshot in
// filename. A missing file leaves the store empty.
func (s *MemoryStore) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	storageData, err := readSnapshot(file)
	if err != nil {
		return err
	}

	collections := make(map[string]*MemoryCore, len(storageData.Collections))
	for name, data := range storageData.Collections {
		core := NewMemoryCore(name)
		core.limit = s.memoryLimit
		core.idCounter = data.IDCounter
		for _, rec := range data.Records {
			core.put(rec.ID, rec.Data)
		}
		core.dirty = false
		collections[name] = core
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = collections
	return nil
}

func readSnapshot(r io.Reader) (*StorageData, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid file header: %w", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	if header.Flags&FlagCompressed != 0 {
		decompressedData := make([]byte, header.Length)
		n, err := lz4.UncompressBlock(payload, decompressedData)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		payload = decompressedData[:n]
	}

	var storageData StorageData
	if err := msgpack.Unmarshal(payload, &storageData); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	if storageData.Collections == nil {
		storageData.Collections = make(map[string]*CollectionData)
	}
	return &storageData, nil
}
