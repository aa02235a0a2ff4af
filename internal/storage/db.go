package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"procure/internal"
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
CREATE TABLE IF NOT EXISTS imports (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  sheet TEXT,
  hash TEXT NOT NULL UNIQUE,
  rowCount INTEGER NOT NULL,
  headerJson TEXT NOT NULL,
  emailId INTEGER,
  importedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS import_rows (
  importId TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  cellsJson TEXT NOT NULL,
  PRIMARY KEY(importId, rowNo),
  FOREIGN KEY(importId) REFERENCES imports(id)
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  importId TEXT,
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS queries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  importId TEXT,
  query TEXT NOT NULL,
  intent TEXT NOT NULL,
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

// SaveImport stores a raw table snapshot. Nothing derived is persisted.
func (d *DB) SaveImport(raw internal.RawTable, hash string, emailID *int) (internal.ImportRecord, error) {
	id := uuid.NewString()
	headerJSON, err := json.Marshal(raw.Header)
	if err != nil {
		return internal.ImportRecord{}, err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return internal.ImportRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO imports (id, source, sheet, hash, rowCount, headerJson, emailId)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, id, raw.Source, raw.Sheet, hash, len(raw.Rows), string(headerJSON), emailID); err != nil {
		return internal.ImportRecord{}, err
	}

	stmt, err := tx.Prepare(`INSERT INTO import_rows (importId, rowNo, cellsJson) VALUES (?, ?, ?)`)
	if err != nil {
		return internal.ImportRecord{}, err
	}
	defer stmt.Close()

	for i, row := range raw.Rows {
		cellsJSON, _ := json.Marshal(row)
		if _, err := stmt.Exec(id, i+1, string(cellsJSON)); err != nil {
			return internal.ImportRecord{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return internal.ImportRecord{}, err
	}

	rec, err := d.GetImport(id)
	if err != nil {
		return internal.ImportRecord{}, err
	}
	if rec == nil {
		return internal.ImportRecord{}, errors.New("failed to save import")
	}
	return *rec, nil
}

const importColumns = `id, source, COALESCE(sheet, ''), hash, rowCount, emailId, importedAt`

func scanImport(scan func(dest ...any) error) (internal.ImportRecord, error) {
	var rec internal.ImportRecord
	var emailID sql.NullInt64
	if err := scan(&rec.ID, &rec.Source, &rec.Sheet, &rec.Hash, &rec.Rows, &emailID, &rec.ImportedAt); err != nil {
		return internal.ImportRecord{}, err
	}
	if emailID.Valid {
		v := int(emailID.Int64)
		rec.EmailID = &v
	}
	return rec, nil
}

func (d *DB) queryImport(query string, args ...any) (*internal.ImportRecord, error) {
	rec, err := scanImport(d.conn.QueryRow(query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *DB) GetImport(id string) (*internal.ImportRecord, error) {
	return d.queryImport(`SELECT `+importColumns+` FROM imports WHERE id = ?`, id)
}

func (d *DB) FindImportByHash(hash string) (*internal.ImportRecord, error) {
	return d.queryImport(`SELECT `+importColumns+` FROM imports WHERE hash = ?`, hash)
}

func (d *DB) LatestImport() (*internal.ImportRecord, error) {
	return d.queryImport(`SELECT ` + importColumns + ` FROM imports ORDER BY importedAt DESC, rowid DESC LIMIT 1`)
}

func (d *DB) ListImports(limit int) ([]internal.ImportRecord, error) {
	rows, err := d.conn.Query(`SELECT `+importColumns+` FROM imports ORDER BY importedAt DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportRecord
	for rows.Next() {
		rec, err := scanImport(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadRawTable rebuilds the stored snapshot of an import.
func (d *DB) LoadRawTable(importID string) (internal.RawTable, error) {
	var table internal.RawTable
	var headerJSON string
	err := d.conn.QueryRow(`SELECT source, COALESCE(sheet, ''), headerJson FROM imports WHERE id = ?`, importID).
		Scan(&table.Source, &table.Sheet, &headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.RawTable{}, fmt.Errorf("import not found: %s", importID)
	}
	if err != nil {
		return internal.RawTable{}, err
	}
	if err := json.Unmarshal([]byte(headerJSON), &table.Header); err != nil {
		return internal.RawTable{}, fmt.Errorf("decode header of import %s: %w", importID, err)
	}

	rows, err := d.conn.Query(`SELECT cellsJson FROM import_rows WHERE importId = ? ORDER BY rowNo ASC`, importID)
	if err != nil {
		return internal.RawTable{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return internal.RawTable{}, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return internal.RawTable{}, fmt.Errorf("decode row of import %s: %w", importID, err)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, COALESCE(subject, ''), COALESCE(sender, ''), COALESCE(receivedAt, ''), hash, status, rawRef`

func scanEmail(scan func(dest ...any) error) (internal.EmailRow, error) {
	var row internal.EmailRow
	err := scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef)
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) InsertRun(traceID, importID string, emailID *int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, importId, emailId, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, importID, emailID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) LogQuery(importID, query, intent string) error {
	_, err := d.conn.Exec(`INSERT INTO queries (importId, query, intent) VALUES (?, ?, ?)`, importID, query, intent)
	return err
}

func (d *DB) ListQueries(limit int) ([]internal.QueryLogRow, error) {
	rows, err := d.conn.Query(`SELECT id, COALESCE(importId, ''), query, intent, createdAt FROM queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.QueryLogRow
	for rows.Next() {
		var row internal.QueryLogRow
		if err := rows.Scan(&row.ID, &row.ImportID, &row.Query, &row.Intent, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
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
