package ingest

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID creates a time-ordered run id suitable for logs and API responses.
// Format: "run_" + UUIDv7 without dashes (32 hex chars).
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return "run_" + strings.ReplaceAll(id.String(), "-", ""), nil
}
