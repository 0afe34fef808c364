// Package ledger provides an append-only history of the commands lightslider
// sent to lights, for auditing and debugging laggy bridges.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the outcome recorded in the ledger
type EventType string

const (
	EventCommandApplied EventType = "command_applied"
	EventCommandFailed  EventType = "command_failed"
)

// Entry represents a single command outcome in the ledger
type Entry struct {
	ID             int64
	EventType      EventType
	Timestamp      time.Time
	Target         string
	Service        string
	Payload        map[string]any
	Committed      bool
	Source         string
	Error          string
	IdempotencyKey string
}

// Ledger provides append-only command logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append records an entry. Timestamp is set by the ledger.
// For command_applied entries with an idempotency key, uses INSERT OR IGNORE
// so a retried write of the same commit is recorded once.
func (l *Ledger) Append(e Entry) error {
	var payloadJSON []byte
	if e.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	insertSQL := `INSERT INTO command_ledger (event_type, timestamp, target, service, payload, committed, source, error, idempotency_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if e.EventType == EventCommandApplied && e.IdempotencyKey != "" {
		insertSQL = `INSERT OR IGNORE INTO command_ledger (event_type, timestamp, target, service, payload, committed, source, error, idempotency_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}

	_, err := l.db.Exec(insertSQL,
		string(e.EventType), l.now().UTC().UnixMilli(), e.Target, e.Service,
		string(payloadJSON), e.Committed, e.Source, e.Error, e.IdempotencyKey,
	)
	return err
}

// HasApplied checks if a command with the given idempotency key was applied
func (l *Ledger) HasApplied(idempotencyKey string) bool {
	if idempotencyKey == "" {
		return false
	}

	var exists int
	err := l.db.QueryRow(`
		SELECT 1 FROM command_ledger
		WHERE idempotency_key = ? AND event_type = ?
		LIMIT 1
	`, idempotencyKey, string(EventCommandApplied)).Scan(&exists)

	return err == nil && exists == 1
}

// GetByType returns entries filtered by event type, newest first
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, target, service, payload, committed, source, error, idempotency_key
		FROM command_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByTarget returns entries for one light, newest first
func (l *Ledger) GetByTarget(target string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, target, service, payload, committed, source, error, idempotency_key
		FROM command_ledger
		WHERE target = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM command_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Purge removes every entry
func (l *Ledger) Purge() (int64, error) {
	result, err := l.db.Exec(`DELETE FROM command_ledger`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source, errStr, idempotencyKey sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &entry.Target, &entry.Service,
			&payloadStr, &entry.Committed, &source, &errStr, &idempotencyKey,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.Source = source.String
		entry.Error = errStr.String
		entry.IdempotencyKey = idempotencyKey.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
