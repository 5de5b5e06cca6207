package storage

import (
	"path/filepath"
	"testing"

	"s2j/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "s2j.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(id, guid, ingestedAt string) internal.ExportRecord {
	return internal.ExportRecord{
		SaberisID:       id,
		GUID:            guid,
		IngestedAt:      ingestedAt,
		CustomerName:    "Jane Smith",
		Username:        "designer1",
		ExportDate:      "2024-05-01",
		ShippingSummary: "1 Main St, Seattle",
		Payload:         []byte("payload"),
	}
}

func TestInsertExportDedupesByGUID(t *testing.T) {
	db := openTestDB(t)

	stored, err := db.InsertExport(record("id-1", "g-1", "2024-05-01T10:00:00Z"))
	if err != nil || !stored {
		t.Fatalf("first insert: stored=%v err=%v", stored, err)
	}

	stored, err = db.InsertExport(record("id-other", "g-1", "2024-05-01T11:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if stored {
		t.Fatal("duplicate GUID should be skipped")
	}

	records, err := db.ListExports()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
}

func TestListExportsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	for _, r := range []internal.ExportRecord{
		record("id-1", "g-1", "2024-05-01T10:00:00Z"),
		record("id-2", "g-2", "2024-05-02T10:00:00Z"),
		record("id-3", "g-3", "2024-05-03T10:00:00Z"),
	} {
		if _, err := db.InsertExport(r); err != nil {
			t.Fatal(err)
		}
	}

	records, err := db.ListExports()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].SaberisID != "id-3" || records[2].SaberisID != "id-1" {
		t.Fatalf("order: %+v", records)
	}
	if len(records[0].Payload) != 0 {
		t.Fatal("list should not carry payloads")
	}
}

func TestGetExportAndMarkSent(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertExport(record("id-1", "g-1", "2024-05-01T10:00:00Z")); err != nil {
		t.Fatal(err)
	}

	rec, err := db.GetExport("id-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || string(rec.Payload) != "payload" || rec.SentToJobber {
		t.Fatalf("rec = %+v", rec)
	}

	if err := db.MarkSent("id-1", true); err != nil {
		t.Fatal(err)
	}
	rec, _ = db.GetExport("id-1")
	if !rec.SentToJobber {
		t.Fatal("not marked sent")
	}

	if err := db.MarkSent("missing", true); err == nil {
		t.Fatal("marking a missing export should error")
	}

	missing, err := db.GetExport("missing")
	if err != nil || missing != nil {
		t.Fatalf("missing = %+v err = %v", missing, err)
	}
}

func TestPruneExports(t *testing.T) {
	db := openTestDB(t)
	for _, r := range []internal.ExportRecord{
		record("id-1", "g-1", "2024-05-01T10:00:00Z"),
		record("id-2", "g-2", "2024-05-02T10:00:00Z"),
		record("id-3", "g-3", "2024-05-03T10:00:00Z"),
		record("id-4", "g-4", "2024-05-04T10:00:00Z"),
	} {
		if _, err := db.InsertExport(r); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := db.PruneExports(3)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}

	records, _ := db.ListExports()
	if len(records) != 3 || records[2].SaberisID != "id-2" {
		t.Fatalf("kept: %+v", records)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetadata("k"); err != nil || v != nil {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if err := db.SetMetadata("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("k")
	if err != nil || v == nil || *v != "v2" {
		t.Fatalf("v=%v err=%v", v, err)
	}
}
