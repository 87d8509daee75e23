package database

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLiteDatabase opens a SQLite backed store, e.g. "file:images.db" or ":memory:"
func NewSQLiteDatabase(connectionString string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases alive and avoids SQLITE_BUSY on writes
	db.SetMaxOpenConns(1)

	return newSQLStore(db, dialect{name: "sqlite"}), nil
}
