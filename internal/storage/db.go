package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"s2j/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS exports (
  saberisId TEXT PRIMARY KEY,
  guid TEXT NOT NULL UNIQUE,
  ingestedAt TEXT NOT NULL,
  customerName TEXT,
  username TEXT,
  exportDate TEXT,
  shippingSummary TEXT,
  sentToJobber INTEGER NOT NULL DEFAULT 0,
  payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_ingestedAt ON exports(ingestedAt);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertExport stores a new export record. A record whose GUID is already
// present is skipped; the bool reports whether a row was written.
func (d *DB) InsertExport(rec internal.ExportRecord) (bool, error) {
	res, err := d.conn.Exec(`
INSERT OR IGNORE INTO exports (
  saberisId, guid, ingestedAt, customerName, username, exportDate, shippingSummary, sentToJobber, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.SaberisID, rec.GUID, rec.IngestedAt, rec.CustomerName, rec.Username, rec.ExportDate, rec.ShippingSummary, rec.SentToJobber, rec.Payload)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListExports returns all export records newest-first, without payloads.
func (d *DB) ListExports() ([]internal.ExportRecord, error) {
	rows, err := d.conn.Query(`
SELECT saberisId, guid, ingestedAt, customerName, username, exportDate, shippingSummary, sentToJobber
FROM exports ORDER BY ingestedAt DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ExportRecord
	for rows.Next() {
		var rec internal.ExportRecord
		if err := rows.Scan(
			&rec.SaberisID, &rec.GUID, &rec.IngestedAt, &rec.CustomerName,
			&rec.Username, &rec.ExportDate, &rec.ShippingSummary, &rec.SentToJobber,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetExport returns one record with its payload, or nil when absent.
func (d *DB) GetExport(saberisID string) (*internal.ExportRecord, error) {
	var rec internal.ExportRecord
	err := d.conn.QueryRow(`
SELECT saberisId, guid, ingestedAt, customerName, username, exportDate, shippingSummary, sentToJobber, payload
FROM exports WHERE saberisId = ?
`, saberisID).Scan(
		&rec.SaberisID, &rec.GUID, &rec.IngestedAt, &rec.CustomerName,
		&rec.Username, &rec.ExportDate, &rec.ShippingSummary, &rec.SentToJobber, &rec.Payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasGUID reports whether an export with the given source GUID is stored.
func (d *DB) HasGUID(guid string) (bool, error) {
	var one int
	err := d.conn.QueryRow(`SELECT 1 FROM exports WHERE guid = ?`, guid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) MarkSent(saberisID string, sent bool) error {
	res, err := d.conn.Exec(`UPDATE exports SET sentToJobber = ? WHERE saberisId = ?`, sent, saberisID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("export not found: " + saberisID)
	}
	return nil
}

// PruneExports deletes all but the newest keep records and reports how
// many rows were removed.
func (d *DB) PruneExports(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := d.conn.Exec(`
DELETE FROM exports WHERE saberisId NOT IN (
  SELECT saberisId FROM exports ORDER BY ingestedAt DESC LIMIT ?
)
`, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (d *DB) InsertRun(traceID string, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, countsJson) VALUES (?, ?)`, traceID, string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value, updatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updatedAt=CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
