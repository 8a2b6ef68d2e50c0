package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"painel/internal"
)

const (
	EmailFetched   = "fetched"
	EmailProcessed = "processed"
	EmailSkipped   = "skipped"
	EmailFailed    = "failed"
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
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  inputRef TEXT NOT NULL,
  rowsProcessed INTEGER NOT NULL,
  rowsApplied INTEGER NOT NULL,
  pendencies INTEGER NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);

CREATE TABLE IF NOT EXISTS run_pendencies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  institution TEXT NOT NULL,
  disability TEXT NOT NULL,
  age TEXT NOT NULL,
  reason TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_pendencies_run ON run_pendencies(runId);

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

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// RunRecord is what a finished pipeline run leaves in the ledger.
type RunRecord struct {
	TraceID       string
	Source        string
	InputRef      string
	RowsProcessed int
	RowsApplied   int
	Counts        map[string]int
	Timings       map[string]float64
	Pendencies    []internal.Pendency
}

func (d *DB) InsertRun(rec RunRecord) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	countsJSON, _ := json.Marshal(rec.Counts)
	timingsJSON, _ := json.Marshal(rec.Timings)
	result, err := tx.Exec(`
INSERT INTO runs (traceId, source, inputRef, rowsProcessed, rowsApplied, pendencies, countsJson, timingsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.TraceID, rec.Source, rec.InputRef, rec.RowsProcessed, rec.RowsApplied, len(rec.Pendencies), string(countsJSON), string(timingsJSON))
	if err != nil {
		return 0, err
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Pendencies) > 0 {
		stmt, err := tx.Prepare(`
INSERT INTO run_pendencies (runId, lineNo, institution, disability, age, reason)
VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		for _, p := range rec.Pendencies {
			if _, err := stmt.Exec(runID, p.LineNo, p.Institution, p.Disability, p.Age, string(p.Reason)); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

type RunFilter struct {
	Source string
	Limit  int
}

func (d *DB) ListRuns(filter RunFilter) ([]internal.RunRow, error) {
	query := sq.Select(
		"id", "traceId", "source", "inputRef", "rowsProcessed", "rowsApplied",
		"pendencies", "countsJson", "timingsJson", "createdAt",
	).From("runs").OrderBy("id DESC")
	if filter.Source != "" {
		query = query.Where(sq.Eq{"source": filter.Source})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(d.conn).Query()
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var r internal.RunRow
		if err := rows.Scan(
			&r.ID, &r.TraceID, &r.Source, &r.InputRef, &r.RowsProcessed, &r.RowsApplied,
			&r.Pendencies, &r.CountsJSON, &r.TimingsJSON, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetRunByTraceID(traceID string) (*internal.RunRow, error) {
	var r internal.RunRow
	err := d.conn.QueryRow(`
SELECT id, traceId, source, inputRef, rowsProcessed, rowsApplied, pendencies, countsJson, timingsJson, createdAt
FROM runs WHERE traceId = ?
`, traceID).Scan(
		&r.ID, &r.TraceID, &r.Source, &r.InputRef, &r.RowsProcessed, &r.RowsApplied,
		&r.Pendencies, &r.CountsJSON, &r.TimingsJSON, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type PendencyFilter struct {
	RunID  int
	Reason internal.Reason
}

func (d *DB) ListRunPendencies(filter PendencyFilter) ([]internal.PendencyRow, error) {
	query := sq.Select("runId", "lineNo", "institution", "disability", "age", "reason").
		From("run_pendencies").
		Where(sq.Eq{"runId": filter.RunID}).
		OrderBy("lineNo ASC", "id ASC")
	if filter.Reason != "" {
		query = query.Where(sq.Eq{"reason": string(filter.Reason)})
	}

	rows, err := query.RunWith(d.conn).Query()
	if err != nil {
		return nil, fmt.Errorf("query pendencies: %w", err)
	}
	defer rows.Close()

	var out []internal.PendencyRow
	for rows.Next() {
		var p internal.PendencyRow
		var reason string
		if err := rows.Scan(&p.RunID, &p.LineNo, &p.Institution, &p.Disability, &p.Age, &reason); err != nil {
			return nil, fmt.Errorf("scan pendency: %w", err)
		}
		p.Reason = internal.Reason(reason)
		out = append(out, p)
	}
	return out, rows.Err()
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

var emailColumns = []string{"id", "provider", "messageId", "subject", "sender", "receivedAt", "hash", "status", "rawRef"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(r rowScanner) (internal.EmailRow, error) {
	var row internal.EmailRow
	var subject, sender, receivedAt sql.NullString
	err := r.Scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Hash, &row.Status, &row.RawRef)
	row.Subject = subject.String
	row.Sender = sender.String
	row.ReceivedAt = receivedAt.String
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(sq.Select(emailColumns...).
		From("emails").
		Where(sq.Eq{"provider": provider, "messageId": messageID}).
		RunWith(d.conn).
		QueryRow())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	return &row, nil
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

// EmailFilter selects ledger rows; empty fields match everything.
type EmailFilter struct {
	Status   string
	Provider string
	Limit    int
}

// ListEmails returns matching emails oldest first.
func (d *DB) ListEmails(filter EmailFilter) ([]internal.EmailRow, error) {
	query := sq.Select(emailColumns...).From("emails").OrderBy("receivedAt ASC", "id ASC")
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Provider != "" {
		query = query.Where(sq.Eq{"provider": filter.Provider})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(d.conn).Query()
	if err != nil {
		return nil, fmt.Errorf("query emails: %w", err)
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
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
