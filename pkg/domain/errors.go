package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorage matches every *StorageError via errors.Is
	ErrStorage = errors.New("storage failure")

	// ErrConfiguration matches every *ConfigurationError via errors.Is
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation matches every *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")

	// ErrCollectionNotFound is returned when a named collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrClosed is returned when operating on a closed collection
	ErrClosed = errors.New("collection is closed")
)

// StorageError carries the message reported by the storage core when its
// response envelope says success:false.
type StorageError struct {
	Op      string
	Message string
}

func (e *StorageError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError creates a storage error for the given core operation
func NewStorageError(op, message string) *StorageError {
	return &StorageError{Op: op, Message: message}
}

// ConfigurationError reports a request that can never succeed as written:
// an unknown aggregation stage, a conflicting index definition, a unique
// index violation.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configurationf formats a ConfigurationError
func Configurationf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError lists JSON-schema violations of a document
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document invalid against schema: %s", strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
