package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// PipelineRepo handles all pipeline-related database operations.
type PipelineRepo struct {
	db *sql.DB
}

// CreatePipelineParams carries the fields of a new pipeline. The context
// binding (type + id) is immutable after creation.
type CreatePipelineParams struct {
	Name               string
	ContextType        string
	ContextID          string
	AllowedRolesView   []string
	AllowedRolesManage []string
}

// Create inserts a new pipeline and returns it.
func (r *PipelineRepo) Create(ctx context.Context, params CreatePipelineParams) (*models.Pipeline, error) {
	viewRoles, err := jsonList(params.AllowedRolesView)
	if err != nil {
		return nil, err
	}
	manageRoles, err := jsonList(params.AllowedRolesManage)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO pipelines (name, context_type, context_id, allowed_roles_view, allowed_roles_manage)
		 VALUES (?, ?, ?, ?, ?)`,
		params.Name, params.ContextType, params.ContextID, viewRoles, manageRoles,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting pipeline: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, types.PipelineID(id))
}

// GetByID retrieves a pipeline, returning models.ErrPipelineNotFound for
// unknown ids.
func (r *PipelineRepo) GetByID(ctx context.Context, id types.PipelineID) (*models.Pipeline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, context_type, context_id, allowed_roles_view, allowed_roles_manage,
		        created_at, updated_at
		 FROM pipelines WHERE id = ?`, int64(id))

	var p models.Pipeline
	var viewRoles, manageRoles sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.ContextType, &p.ContextID,
		&viewRoles, &manageRoles, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPipelineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying pipeline %d: %w", id, err)
	}

	if p.AllowedRolesView, err = scanJSONList(viewRoles); err != nil {
		return nil, err
	}
	if p.AllowedRolesManage, err = scanJSONList(manageRoles); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAll retrieves every pipeline, newest first.
func (r *PipelineRepo) GetAll(ctx context.Context) ([]*models.Pipeline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, context_type, context_id, allowed_roles_view, allowed_roles_manage,
		        created_at, updated_at
		 FROM pipelines ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*models.Pipeline
	for rows.Next() {
		var p models.Pipeline
		var viewRoles, manageRoles sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.ContextType, &p.ContextID,
			&viewRoles, &manageRoles, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.AllowedRolesView, err = scanJSONList(viewRoles); err != nil {
			return nil, err
		}
		if p.AllowedRolesManage, err = scanJSONList(manageRoles); err != nil {
			return nil, err
		}
		pipelines = append(pipelines, &p)
	}
	return pipelines, rows.Err()
}

// UpdateRoles replaces the pipeline's view and manage role sets. The
// context binding is never updatable.
func (r *PipelineRepo) UpdateRoles(ctx context.Context, id types.PipelineID, viewRoles, manageRoles []string) error {
	view, err := jsonList(viewRoles)
	if err != nil {
		return err
	}
	manage, err := jsonList(manageRoles)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE pipelines
		 SET allowed_roles_view = ?, allowed_roles_manage = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		view, manage, int64(id))
	if err != nil {
		return fmt.Errorf("updating pipeline %d roles: %w", id, err)
	}
	return requireRowAffected(result, models.ErrPipelineNotFound)
}

// requireRowAffected maps a zero-row update to the given domain error.
func requireRowAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
