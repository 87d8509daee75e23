package database

import (
	"github.com/google/uuid"
)

// generateID returns a time ordered UUIDv7, so sorting ids descending lists
// the newest records first
func generateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
