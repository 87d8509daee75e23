package database

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// dialect covers the differences between the supported SQL engines
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

// SQLStore is a RecordStore on top of database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

const createTableStatement = `CREATE TABLE IF NOT EXISTS images (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	mimetype TEXT NOT NULL,
	views BIGINT NOT NULL DEFAULT 0
)`

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// rebind rewrites ? placeholders for engines that use numbered ones
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) CreateDatabase(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableStatement); err != nil {
		return fmt.Errorf("failed to create images table: %w", err)
	}
	return nil
}

func (s *SQLStore) DoesDatabaseExist(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Insert(ctx context.Context, data []byte, meta string) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind("INSERT INTO images (id, data, mimetype, views) VALUES (?, ?, ?, 0)"),
		id, base64.StdEncoding.EncodeToString(data), meta)
	if err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}
	return id, nil
}

func (s *SQLStore) GetRecordByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, data, mimetype, views FROM images WHERE id = ?"), id)

	record, err := scanRecord(row.Scan, allFields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return record, nil
}

func (s *SQLStore) GetRecords(ctx context.Context, fields ...string) ([]*Record, error) {
	columns, err := projection(fields)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM images ORDER BY id DESC"
	return s.queryRecords(ctx, columns, query)
}

func (s *SQLStore) ListRange(ctx context.Context, offset, limit int, orderBy OrderBy) ([]*Record, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range: offset %d, limit %d", offset, limit)
	}
	order, err := orderBy.clause()
	if err != nil {
		return nil, err
	}

	query := s.rebind("SELECT id, data, mimetype, views FROM images ORDER BY " + order + " LIMIT ? OFFSET ?")
	return s.queryRecords(ctx, allFields, query, limit, offset)
}

func (s *SQLStore) UpdateMeta(ctx context.Context, id string, meta string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE images SET mimetype = ? WHERE id = ?"), meta, id)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return expectAffected(res, id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM images WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return expectAffected(res, id)
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (s *SQLStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx,
		s.rebind("UPDATE images SET views = views + 1 WHERE id = ? RETURNING views"), id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment views of %s: %w", id, err)
	}
	return views, nil
}

func (s *SQLStore) ViewCounts(ctx context.Context, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, views FROM images WHERE id IN ("+placeholders+")"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load view counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var id string
		var views int64
		if err := rows.Scan(&id, &views); err != nil {
			return nil, err
		}
		counts[id] = views
	}
	return counts, rows.Err()
}

func (s *SQLStore) queryRecords(ctx context.Context, columns []string, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// projection validates requested columns, defaulting to all of them
func projection(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return allFields, nil
	}

	columns := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FieldID, FieldData, FieldMeta, FieldViews:
		default:
			return nil, fmt.Errorf("unknown field: %s", f)
		}
		if !seen[f] {
			seen[f] = true
			columns = append(columns, f)
		}
	}
	return columns, nil
}

func scanRecord(scan func(dest ...any) error, columns []string) (*Record, error) {
	var record Record
	var encoded string

	dest := make([]any, len(columns))
	for i, c := range columns {
		switch c {
		case FieldID:
			dest[i] = &record.ID
		case FieldData:
			dest[i] = &encoded
		case FieldMeta:
			dest[i] = &record.Meta
		case FieldViews:
			dest[i] = &record.Views
		}
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	if encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("record %s has a corrupt payload: %w", record.ID, err)
		}
		record.Data = data
	}
	return &record, nil
}

func expectAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}

var _ RecordStore = (*SQLStore)(nil)
