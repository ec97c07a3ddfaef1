package weather

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrValidation = errors.New("validation failed")
	ErrEmbedding  = errors.New("embedding failed")
	ErrStorage    = errors.New("storage failed")
)

// FetchError reports a network, HTTP or decoding failure from an external API.
type FetchError struct {
	Source     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// ValidationError lists the required fields missing from a record.
type ValidationError struct {
	City    string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid weather data for %q: missing %s", e.City, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// EmbeddingError reports a model failure.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed with %s: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() []error { return []error{ErrEmbedding, e.Err} }

// Storage operations reported in StorageError.Op.
const (
	OpConnect = "connect"
	OpBegin   = "begin"
	OpExec    = "exec"
	OpCommit  = "commit"
	OpQuery   = "query"
	OpSchema  = "schema"
)

// StorageError reports a database connection, query or transaction failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// IsConnectError reports whether err is a StorageError raised while connecting.
func IsConnectError(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpConnect
}
