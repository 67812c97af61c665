package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic bytes to identify the snapshot format
	MagicBytes = "GDOC"
	// Current version
	FormatVersion = 1
	// File extension for snapshot files
	FileExtension = ".gdoc"

	// FlagCompressed marks an lz4 block payload; without it the payload is raw msgpack
	FlagCompressed uint8 = 1 << 0
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic    [4]byte // "GDOC"
	Version  uint8   // Format version
	Flags    uint8   // FlagCompressed
	Reserved [2]byte
	Length   uint64 // Uncompressed payload length
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, length uint64) error {
	header := FileHeader{
		Magic:   [4]byte{'G', 'D', 'O', 'C'},
		Version: FormatVersion,
		Flags:   flags,
		Length:  length,
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// StorageData is the snapshot payload
type StorageData struct {
	Collections map[string]*CollectionData `msgpack:"collections"`
	Metadata    map[string]interface{}     `msgpack:"metadata,omitempty"`
}

// CollectionData holds one collection's documents in insertion order
type CollectionData struct {
	Records   []SnapshotRecord `msgpack:"records"`
	IDCounter int64            `msgpack:"id_counter"`
}

// SnapshotRecord is a stored document as msgpack bytes
type SnapshotRecord struct {
	ID   string `msgpack:"id"`
	Data []byte `msgpack:"data"`
}

// NewStorageData creates a new empty storage data structure
func NewStorageData() *StorageData {
	return &StorageData{
		Collections: make(map[string]*CollectionData),
		Metadata:    make(map[string]interface{}),
	}
}
