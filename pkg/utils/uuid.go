package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a random RFC 4122 version 4 UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateID returns a 16 character uppercase hex identifier taken from a
// random UUID, the form used for catalog track and artist IDs.
func GenerateID() string {
	u := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:16])
}
