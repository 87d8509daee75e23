package core

import (
	"errors"
	"fmt"

	"github.com/jo-hoe/imageroulette/internal/backend/database"
)

var (
	// ErrStore marks failures of the record store or the view counter
	ErrStore = errors.New("store failure")
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("image not found")
)

// storeError wraps err so that both ErrStore and err match errors.Is.
// A missing record is reported as ErrNotFound instead.
func storeError(op string, err error) error {
	if errors.Is(err, database.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
