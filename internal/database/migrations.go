package database

import (
	"context"
	"database/sql"
)

// runMigrations creates the workflow schema. Role sets and rule documents
// are stored as JSON text columns; empty sets are stored as NULL so
// "unrestricted" and "restricted to nobody" cannot be confused.
func runMigrations(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pipelines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		context_type TEXT NOT NULL,
		context_id TEXT NOT NULL,
		allowed_roles_view TEXT,
		allowed_roles_manage TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pipeline_columns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		allowed_entity_types TEXT,
		allowed_roles_view TEXT,
		allowed_roles_move_in TEXT,
		allowed_roles_move_out TEXT,
		transition_rules_json TEXT,
		notification_rules_json TEXT,
		card_layout_json TEXT,
		filter_config_json TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE,
		UNIQUE(pipeline_id, key),
		UNIQUE(pipeline_id, position)
	);

	CREATE TABLE IF NOT EXISTS pipeline_cards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline_id INTEGER NOT NULL,
		column_id INTEGER NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		data_snapshot_json TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE,
		FOREIGN KEY (column_id) REFERENCES pipeline_columns(id)
	);

	CREATE INDEX IF NOT EXISTS idx_columns_pipeline
	ON pipeline_columns(pipeline_id, position);

	CREATE INDEX IF NOT EXISTS idx_cards_column
	ON pipeline_cards(column_id, sort_order);

	CREATE INDEX IF NOT EXISTS idx_cards_pipeline
	ON pipeline_cards(pipeline_id);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
