package fingerprint

import (
	"errors"
	"fmt"
)

// ErrInvalidFingerprint is returned for fingerprints that decoded but cannot be
// scored: no codes at all, or times that are not in ascending order.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// DecodeError reports a code string whose base64 or zlib layer is corrupt.
type DecodeError struct {
	Stage string // "base64" or "zlib"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding code string (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
