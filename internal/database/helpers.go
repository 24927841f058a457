package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// withTx executes a function within a database transaction.
// It automatically handles begin, rollback on error, and commit on success.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// jsonList serializes a role or entity-type set for storage. Empty sets
// become NULL so an unrestricted column reads back as an empty set.
func jsonList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list column: %w", err)
	}
	return string(data), nil
}

// scanJSONList deserializes a stored set column. NULL reads as nil.
func scanJSONList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list column: %w", err)
	}
	return values, nil
}

// jsonDoc stores an opaque JSON document, NULL when absent. The content
// is passed through untouched; validity is the owning component's concern.
func jsonDoc(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// scanJSONDoc reads an opaque JSON document column.
func scanJSONDoc(raw sql.NullString) json.RawMessage {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.RawMessage(raw.String)
}
