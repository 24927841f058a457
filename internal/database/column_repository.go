package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// ColumnRepo handles all column-related database operations.
type ColumnRepo struct {
	db *sql.DB
}

const columnFields = `id, pipeline_id, key, name, position,
	allowed_entity_types, allowed_roles_view, allowed_roles_move_in, allowed_roles_move_out,
	transition_rules_json, notification_rules_json, card_layout_json, filter_config_json,
	created_at, updated_at`

// Create inserts a new column. Key and position must be unique within the
// pipeline; the unique indexes surface violations as errors.
func (r *ColumnRepo) Create(ctx context.Context, column *models.Column) (*models.Column, error) {
	entityTypes, err := jsonList(column.AllowedEntityTypes)
	if err != nil {
		return nil, err
	}
	viewRoles, err := jsonList(column.AllowedRolesView)
	if err != nil {
		return nil, err
	}
	moveInRoles, err := jsonList(column.AllowedRolesMoveIn)
	if err != nil {
		return nil, err
	}
	moveOutRoles, err := jsonList(column.AllowedRolesMoveOut)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO pipeline_columns
		 (pipeline_id, key, name, position,
		  allowed_entity_types, allowed_roles_view, allowed_roles_move_in, allowed_roles_move_out,
		  transition_rules_json, notification_rules_json, card_layout_json, filter_config_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(column.PipelineID), column.Key, column.Name, column.Position,
		entityTypes, viewRoles, moveInRoles, moveOutRoles,
		jsonDoc(column.TransitionRules), jsonDoc(column.NotificationRules),
		jsonDoc(column.CardLayout), jsonDoc(column.FilterConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting column: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, types.ColumnID(id))
}

// GetByID retrieves a column, returning models.ErrColumnNotFound for
// unknown ids.
func (r *ColumnRepo) GetByID(ctx context.Context, id types.ColumnID) (*models.Column, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+columnFields+` FROM pipeline_columns WHERE id = ?`, int64(id))
	column, err := scanColumn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying column %d: %w", id, err)
	}
	return column, nil
}

// GetByPipeline retrieves a pipeline's columns in board order.
func (r *ColumnRepo) GetByPipeline(ctx context.Context, pipelineID types.PipelineID) ([]*models.Column, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columnFields+` FROM pipeline_columns
		 WHERE pipeline_id = ? ORDER BY position`, int64(pipelineID))
	if err != nil {
		return nil, fmt.Errorf("querying columns for pipeline %d: %w", pipelineID, err)
	}
	defer rows.Close()

	var columns []*models.Column
	for rows.Next() {
		column, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// Update applies a partial column update. Nil fields in the update are
// left untouched; non-nil fields overwrite, including to an empty set.
func (r *ColumnRepo) Update(ctx context.Context, id types.ColumnID, update models.ColumnUpdate) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := r.getByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if update.Name != nil {
			current.Name = *update.Name
		}
		if update.Position != nil {
			current.Position = *update.Position
		}
		if update.AllowedEntityTypes != nil {
			current.AllowedEntityTypes = *update.AllowedEntityTypes
		}
		if update.AllowedRolesView != nil {
			current.AllowedRolesView = *update.AllowedRolesView
		}
		if update.AllowedRolesMoveIn != nil {
			current.AllowedRolesMoveIn = *update.AllowedRolesMoveIn
		}
		if update.AllowedRolesMoveOut != nil {
			current.AllowedRolesMoveOut = *update.AllowedRolesMoveOut
		}
		if update.TransitionRules != nil {
			current.TransitionRules = update.TransitionRules
		}
		if update.NotificationRules != nil {
			current.NotificationRules = update.NotificationRules
		}
		if update.CardLayout != nil {
			current.CardLayout = update.CardLayout
		}
		if update.FilterConfig != nil {
			current.FilterConfig = update.FilterConfig
		}

		entityTypes, err := jsonList(current.AllowedEntityTypes)
		if err != nil {
			return err
		}
		viewRoles, err := jsonList(current.AllowedRolesView)
		if err != nil {
			return err
		}
		moveInRoles, err := jsonList(current.AllowedRolesMoveIn)
		if err != nil {
			return err
		}
		moveOutRoles, err := jsonList(current.AllowedRolesMoveOut)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pipeline_columns SET
			 name = ?, position = ?,
			 allowed_entity_types = ?, allowed_roles_view = ?,
			 allowed_roles_move_in = ?, allowed_roles_move_out = ?,
			 transition_rules_json = ?, notification_rules_json = ?,
			 card_layout_json = ?, filter_config_json = ?,
			 updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			current.Name, current.Position,
			entityTypes, viewRoles, moveInRoles, moveOutRoles,
			jsonDoc(current.TransitionRules), jsonDoc(current.NotificationRules),
			jsonDoc(current.CardLayout), jsonDoc(current.FilterConfig),
			int64(id))
		if err != nil {
			return fmt.Errorf("updating column %d: %w", id, err)
		}
		return nil
	})
}

func (r *ColumnRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id types.ColumnID) (*models.Column, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+columnFields+` FROM pipeline_columns WHERE id = ?`, int64(id))
	column, err := scanColumn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrColumnNotFound
	}
	return column, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanColumn(row rowScanner) (*models.Column, error) {
	var c models.Column
	var entityTypes, viewRoles, moveInRoles, moveOutRoles sql.NullString
	var transitionRules, notificationRules, cardLayout, filterConfig sql.NullString

	err := row.Scan(&c.ID, &c.PipelineID, &c.Key, &c.Name, &c.Position,
		&entityTypes, &viewRoles, &moveInRoles, &moveOutRoles,
		&transitionRules, &notificationRules, &cardLayout, &filterConfig,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if c.AllowedEntityTypes, err = scanJSONList(entityTypes); err != nil {
		return nil, err
	}
	if c.AllowedRolesView, err = scanJSONList(viewRoles); err != nil {
		return nil, err
	}
	if c.AllowedRolesMoveIn, err = scanJSONList(moveInRoles); err != nil {
		return nil, err
	}
	if c.AllowedRolesMoveOut, err = scanJSONList(moveOutRoles); err != nil {
		return nil, err
	}
	c.TransitionRules = scanJSONDoc(transitionRules)
	c.NotificationRules = scanJSONDoc(notificationRules)
	c.CardLayout = scanJSONDoc(cardLayout)
	c.FilterConfig = scanJSONDoc(filterConfig)
	return &c, nil
}
