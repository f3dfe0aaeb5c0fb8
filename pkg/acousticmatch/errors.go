package acousticmatch

import (
	"fmt"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
)

// ErrInvalidFingerprint is returned when a fingerprint has no usable codes.
var ErrInvalidFingerprint = fingerprint.ErrInvalidFingerprint

// DecodeError reports a corrupt code string.
type DecodeError = fingerprint.DecodeError

// ValidationError rejects an ingest request with a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid %q field: %s", e.Field, e.Reason)
}

// StorageError wraps a failure reported by the storage backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MissingTrackError means a matched track disappeared before its metadata could
// be read.
type MissingTrackError struct {
	TrackID string
}

func (e *MissingTrackError) Error() string {
	return fmt.Sprintf("track %s went missing", e.TrackID)
}
