// Package journal keeps a local SQLite record of control requests and
// actuator transitions so a pot's recent history survives restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of handling a control request.
type Status string

const (
	StatusAccepted Status = "accepted" // decoded and scheduled or applied
	StatusRejected Status = "rejected" // failed to decode
	StatusFailed   Status = "failed"   // decoded but could not be applied
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// timeLayout is fixed width so that text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ControlRecord is one received control request.
type ControlRecord struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Actuator   string    `json:"actuator,omitempty"`
	Command    string    `json:"command,omitempty"`
	Payload    string    `json:"payload"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// TransitionRecord is one on/off change of an actuator.
type TransitionRecord struct {
	ID        string    `json:"id"`
	Actuator  string    `json:"actuator"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the journal operations.
type Repository interface {
	RecordControl(ctx context.Context, rec *ControlRecord) error
	RecordTransition(ctx context.Context, rec *TransitionRecord) error
	ListControls(ctx context.Context, limit int) ([]ControlRecord, error)
	ListTransitions(ctx context.Context, actuator string, limit int) ([]TransitionRecord, error)
}

// SQLiteRepository stores the journal in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on an open database
// whose schema has been migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordControl inserts a control record. ID and ReceivedAt are generated if empty.
func (r *SQLiteRepository) RecordControl(ctx context.Context, rec *ControlRecord) error {
	if rec.ID == "" {
		rec.ID = "ctl-" + uuid.NewString()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO control_requests (id, topic, actuator, command, payload, status, error, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Topic,
		nullableString(rec.Actuator), nullableString(rec.Command),
		rec.Payload, string(rec.Status), nullableString(rec.Error),
		rec.ReceivedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting control record: %w", err)
	}
	return nil
}

// RecordTransition inserts a transition record. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) RecordTransition(ctx context.Context, rec *TransitionRecord) error {
	if rec.ID == "" {
		rec.ID = "trn-" + uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actuator_transitions (id, actuator, state, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Actuator, rec.State, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting transition record: %w", err)
	}
	return nil
}

// ListControls returns the most recent control records, newest first.
func (r *SQLiteRepository) ListControls(ctx context.Context, limit int) ([]ControlRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, topic, actuator, command, payload, status, error, received_at
		 FROM control_requests ORDER BY received_at DESC, id LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying control records: %w", err)
	}
	defer rows.Close()

	var records []ControlRecord
	for rows.Next() {
		var (
			rec                       ControlRecord
			actuator, command, errMsg sql.NullString
			status, receivedAt        string
		)
		if err := rows.Scan(&rec.ID, &rec.Topic, &actuator, &command, &rec.Payload, &status, &errMsg, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning control record: %w", err)
		}
		rec.Actuator = actuator.String
		rec.Command = command.String
		rec.Error = errMsg.String
		rec.Status = Status(status)
		rec.ReceivedAt, _ = time.Parse(timeLayout, receivedAt) //nolint:errcheck // format is ours
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control records: %w", err)
	}
	return records, nil
}

// ListTransitions returns the most recent transitions, newest first.
// An empty actuator lists all of them.
func (r *SQLiteRepository) ListTransitions(ctx context.Context, actuator string, limit int) ([]TransitionRecord, error) {
	query := `SELECT id, actuator, state, created_at FROM actuator_transitions`
	args := []any{}
	if actuator != "" {
		query += ` WHERE actuator = ?`
		args = append(args, actuator)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Actuator, &rec.State, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, createdAt) //nolint:errcheck // format is ours
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return records, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
