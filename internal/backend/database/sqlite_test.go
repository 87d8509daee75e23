package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *SQLStore {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err = ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func mustInsert(t *testing.T, ds RecordStore, data, meta string) string {
	t.Helper()
	id, err := ds.Insert(context.Background(), []byte(data), meta)
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	return id
}

func TestSQLite_DoesDatabaseExist(t *testing.T) {
	ds := newTestDB(t)
	if !ds.DoesDatabaseExist(context.Background()) {
		t.Fatalf("expected DoesDatabaseExist to return true")
	}
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	if _, err := NewDatabase(context.Background(), "mongodb", ""); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestNewDatabase_SQLite(t *testing.T) {
	ds, err := NewDatabase(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	count, err := ds.Count(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("expected empty store, got %d (%v)", count, err)
	}
}

func TestSQLite_InsertAndGetRecordByID(t *testing.T) {
	ds := newTestDB(t)
	payload := []byte{0x00, 0xff, 0x10, 'j', 'p', 'g'}

	id, err := ds.Insert(context.Background(), payload, "image/jpeg;shitlevel=NORMAL_SHIT;roll=30.00")
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	record, err := ds.GetRecordByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRecordByID error: %v", err)
	}
	if record == nil {
		t.Fatalf("GetRecordByID returned nil; expected record")
	}
	if record.ID != id {
		t.Errorf("expected ID %q, got %q", id, record.ID)
	}
	if !bytes.Equal(record.Data, payload) {
		t.Errorf("Data mismatch: got %v", record.Data)
	}
	if record.Meta != "image/jpeg;shitlevel=NORMAL_SHIT;roll=30.00" {
		t.Errorf("Meta mismatch: got %q", record.Meta)
	}
	if record.Views != 0 {
		t.Errorf("expected 0 views, got %d", record.Views)
	}

	// Test non-existent ID
	missing, err := ds.GetRecordByID(context.Background(), "non-existent-id")
	if err != nil {
		t.Fatalf("GetRecordByID(non-existent) error: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetRecordByID(non-existent) returned non-nil; expected nil")
	}
}

func TestSQLite_PayloadIsStoredAsBase64Text(t *testing.T) {
	ds := newTestDB(t)
	id := mustInsert(t, ds, "raw", "image/png")

	var stored string
	if err := ds.db.QueryRow("SELECT data FROM images WHERE id = ?", id).Scan(&stored); err != nil {
		t.Fatalf("query error: %v", err)
	}
	if stored != "cmF3" {
		t.Errorf("expected base64 text %q, got %q", "cmF3", stored)
	}
}

func TestSQLite_GetRecords_Projection(t *testing.T) {
	ds := newTestDB(t)
	id1 := mustInsert(t, ds, "one", "image/jpeg;roll=10")
	id2 := mustInsert(t, ds, "two", "image/png;roll=90")

	records, err := ds.GetRecords(context.Background(), "id", "mimetype")
	if err != nil {
		t.Fatalf("GetRecords(id, mimetype) error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for i, r := range records {
		if r.ID == "" || r.Meta == "" {
			t.Errorf("record[%d] missing selected fields: %+v", i, r)
		}
		if r.Data != nil {
			t.Errorf("record[%d].Data is not nil; expected nil when not selected", i)
		}
	}
	if records[0].ID != id2 || records[1].ID != id1 {
		t.Errorf("expected newest first, got %s, %s", records[0].ID, records[1].ID)
	}
}

func TestSQLite_GetRecords_AllFields(t *testing.T) {
	ds := newTestDB(t)
	id := mustInsert(t, ds, "payload", "image/gif")

	records, err := ds.GetRecords(context.Background())
	if err != nil {
		t.Fatalf("GetRecords error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ID != id || string(r.Data) != "payload" || r.Meta != "image/gif" {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestSQLite_GetRecords_UnknownField(t *testing.T) {
	ds := newTestDB(t)
	if _, err := ds.GetRecords(context.Background(), "nonexistent_field"); err == nil {
		t.Fatalf("expected error for unknown field, got nil")
	}
}

func TestSQLite_ListRange(t *testing.T) {
	ds := newTestDB(t)
	var ids []string
	for _, p := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, mustInsert(t, ds, p, "image/png"))
	}

	tests := []struct {
		name     string
		offset   int
		limit    int
		order    OrderBy
		expected []string
	}{
		{name: "newest first", offset: 0, limit: 2, order: OrderByIDDesc, expected: []string{ids[4], ids[3]}},
		{name: "second page", offset: 2, limit: 2, order: OrderByIDDesc, expected: []string{ids[2], ids[1]}},
		{name: "oldest first", offset: 0, limit: 3, order: OrderByIDAsc, expected: []string{ids[0], ids[1], ids[2]}},
		{name: "past the end", offset: 10, limit: 2, order: OrderByIDDesc, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ds.ListRange(context.Background(), tt.offset, tt.limit, tt.order)
			if err != nil {
				t.Fatalf("ListRange error: %v", err)
			}
			if len(records) != len(tt.expected) {
				t.Fatalf("expected %d records, got %d", len(tt.expected), len(records))
			}
			for i, r := range records {
				if r.ID != tt.expected[i] {
					t.Errorf("record[%d] = %s, want %s", i, r.ID, tt.expected[i])
				}
			}
		})
	}
}

func TestSQLite_ListRange_InvalidArguments(t *testing.T) {
	ds := newTestDB(t)
	if _, err := ds.ListRange(context.Background(), -1, 10, OrderByIDDesc); err == nil {
		t.Error("expected error for negative offset")
	}
	if _, err := ds.ListRange(context.Background(), 0, 10, OrderBy("random")); err == nil {
		t.Error("expected error for unsupported order")
	}
}

func TestSQLite_ListRange_ByViews(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	older := mustInsert(t, ds, "a", "image/png")
	newer := mustInsert(t, ds, "b", "image/png")
	popular := mustInsert(t, ds, "c", "image/png")

	for range 3 {
		if _, err := ds.IncrementViews(ctx, popular); err != nil {
			t.Fatalf("IncrementViews error: %v", err)
		}
	}

	records, err := ds.ListRange(ctx, 0, 10, OrderByViewsDesc)
	if err != nil {
		t.Fatalf("ListRange error: %v", err)
	}
	got := []string{records[0].ID, records[1].ID, records[2].ID}
	want := []string{popular, newer, older}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSQLite_UpdateMeta(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	id := mustInsert(t, ds, "x", "image/png;roll=10")

	if err := ds.UpdateMeta(ctx, id, "image/png;roll=10;hidden=true"); err != nil {
		t.Fatalf("UpdateMeta error: %v", err)
	}
	record, err := ds.GetRecordByID(ctx, id)
	if err != nil {
		t.Fatalf("GetRecordByID error: %v", err)
	}
	if record.Meta != "image/png;roll=10;hidden=true" {
		t.Errorf("Meta not updated: %q", record.Meta)
	}
	if string(record.Data) != "x" {
		t.Errorf("Data changed by UpdateMeta: %q", record.Data)
	}

	if err := ds.UpdateMeta(ctx, "missing", "image/png"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSQLite_Delete(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	id1 := mustInsert(t, ds, "a", "image/png")
	id2 := mustInsert(t, ds, "b", "image/png")

	if err := ds.Delete(ctx, id1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	records, err := ds.GetRecords(ctx, "id")
	if err != nil {
		t.Fatalf("GetRecords error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after deletion, got %d", len(records))
	}
	if records[0].ID != id2 {
		t.Fatalf("expected remaining ID %q, got %q", id2, records[0].ID)
	}

	if err := ds.Delete(ctx, id1); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestSQLite_Count(t *testing.T) {
	ds := newTestDB(t)
	for range 4 {
		mustInsert(t, ds, "p", "image/png")
	}
	count, err := ds.Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4, got %d", count)
	}
}

func TestSQLite_Views(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	id1 := mustInsert(t, ds, "a", "image/png")
	id2 := mustInsert(t, ds, "b", "image/png")

	for want := int64(1); want <= 3; want++ {
		got, err := ds.IncrementViews(ctx, id1)
		if err != nil {
			t.Fatalf("IncrementViews error: %v", err)
		}
		if got != want {
			t.Errorf("IncrementViews = %d, want %d", got, want)
		}
	}

	counts, err := ds.ViewCounts(ctx, []string{id1, id2, "missing"})
	if err != nil {
		t.Fatalf("ViewCounts error: %v", err)
	}
	if counts[id1] != 3 || counts[id2] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}
	if _, ok := counts["missing"]; ok {
		t.Errorf("expected no entry for missing id, got %v", counts)
	}

	if _, err := ds.IncrementViews(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	empty, err := ds.ViewCounts(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty map, got %v (%v)", empty, err)
	}
}

func TestRebind(t *testing.T) {
	pg := newSQLStore(nil, dialect{name: "postgres", numbered: true})
	got := pg.rebind("SELECT id FROM images WHERE id = ? AND views > ? LIMIT ?")
	want := "SELECT id FROM images WHERE id = $1 AND views > $2 LIMIT $3"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}

	lite := newSQLStore(nil, dialect{name: "sqlite"})
	if q := lite.rebind("id = ?"); q != "id = ?" {
		t.Errorf("sqlite rebind changed query: %q", q)
	}
}
