package storage

import (
	"path/filepath"
	"testing"

	"procure/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndLoadImport(t *testing.T) {
	db := openTestDB(t)
	raw := internal.RawTable{
		Source: "xlsx",
		Sheet:  "PURCHASE_ORDER",
		Header: []string{"Order No.", "Part No.", "Order Qty", "GRN Qty"},
		Rows: [][]string{
			{"100", "P1", "5", "5"},
			{"100", "P2", "5", ""},
		},
	}

	rec, err := db.SaveImport(raw, "hash-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.Rows != 2 || rec.Sheet != "PURCHASE_ORDER" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	loaded, err := db.LoadRawTable(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Header) != 4 || len(loaded.Rows) != 2 {
		t.Fatalf("unexpected table: %+v", loaded)
	}
	if loaded.Rows[1][1] != "P2" || loaded.Rows[1][3] != "" {
		t.Fatalf("row order or cells lost: %v", loaded.Rows)
	}

	found, err := db.FindImportByHash("hash-1")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != rec.ID {
		t.Fatalf("hash lookup failed: %+v", found)
	}

	missing, err := db.FindImportByHash("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %+v", missing)
	}
}

func TestLatestImport(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestImport()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Fatalf("expected no import yet")
	}

	raw := internal.RawTable{Source: "csv", Header: []string{"Order No."}, Rows: [][]string{{"1"}}}
	if _, err := db.SaveImport(raw, "a", nil); err != nil {
		t.Fatal(err)
	}
	second, err := db.SaveImport(raw, "b", nil)
	if err != nil {
		t.Fatal(err)
	}

	latest, err = db.LatestImport()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("latest=%+v want %s", latest, second.ID)
	}

	list, err := db.ListImports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d", len(list))
	}
}

func TestEmailStatusAndMetadata(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertEmail("imap", "m1", "PO tracker", "ops@example.com", "2024-05-01T10:00:00Z", "h", "/tmp/m1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListEmailsByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != row.ID {
		t.Fatalf("pending=%+v", pending)
	}
	if err := db.UpdateEmailStatus(row.ID, "imported"); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.ListEmailsByStatus("fetched", 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending emails")
	}

	if err := db.SetMetadata("fx_usd_inr", "83.50"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("fx_usd_inr")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "83.50" {
		t.Fatalf("metadata=%v", v)
	}

	if err := db.LogQuery("imp", "not shipped", "unshipped"); err != nil {
		t.Fatal(err)
	}
	log, err := db.ListQueries(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0].Intent != "unshipped" {
		t.Fatalf("queries=%+v", log)
	}
}
