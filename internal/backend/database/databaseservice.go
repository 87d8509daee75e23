package database

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by mutations that address a missing record
var ErrRecordNotFound = errors.New("record not found")

type RecordStore interface {
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist(ctx context.Context) bool
	Close() error

	// Insert stores the payload with its encoded metadata and returns the new id
	Insert(ctx context.Context, data []byte, meta string) (string, error)
	// GetRecordByID returns nil, nil if no record has the id
	GetRecordByID(ctx context.Context, id string) (*Record, error)
	// GetRecords returns all records with only the requested columns filled.
	// No fields selects every column.
	GetRecords(ctx context.Context, fields ...string) ([]*Record, error)
	ListRange(ctx context.Context, offset, limit int, orderBy OrderBy) ([]*Record, error)
	UpdateMeta(ctx context.Context, id string, meta string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	IncrementViews(ctx context.Context, id string) (int64, error)
	ViewCounts(ctx context.Context, ids []string) (map[string]int64, error)
}
