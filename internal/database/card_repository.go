package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// CardRepo handles all card-related database operations.
type CardRepo struct {
	db *sql.DB
}

const cardFields = `id, pipeline_id, column_id, entity_type, entity_id,
	sort_order, data_snapshot_json, created_at, updated_at`

// Create inserts a new card into a column, appending it after the
// column's current last card.
func (r *CardRepo) Create(ctx context.Context, card *models.Card) (*models.Card, error) {
	var created *models.Card
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var maxOrder sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT MAX(sort_order) FROM pipeline_cards WHERE column_id = ?`,
			int64(card.ColumnID)).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("querying card order: %w", err)
		}

		sortOrder := 0
		if maxOrder.Valid {
			sortOrder = int(maxOrder.Int64) + 1
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_cards
			 (pipeline_id, column_id, entity_type, entity_id, sort_order, data_snapshot_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			int64(card.PipelineID), int64(card.ColumnID),
			card.EntityType, card.EntityID, sortOrder, jsonDoc(card.DataSnapshot))
		if err != nil {
			return fmt.Errorf("inserting card: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		created, err = r.getByIDTx(ctx, tx, types.CardID(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a card, returning models.ErrCardNotFound for unknown ids.
func (r *CardRepo) GetByID(ctx context.Context, id types.CardID) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardFields+` FROM pipeline_cards WHERE id = ?`, int64(id))
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying card %d: %w", id, err)
	}
	return card, nil
}

// GetByColumn retrieves a column's cards in board order.
func (r *CardRepo) GetByColumn(ctx context.Context, columnID types.ColumnID) ([]*models.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardFields+` FROM pipeline_cards
		 WHERE column_id = ? ORDER BY sort_order`, int64(columnID))
	if err != nil {
		return nil, fmt.Errorf("querying cards for column %d: %w", columnID, err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// MoveCard writes the card's new column with an optimistic guard on the
// expected source column. If a concurrent move already changed the
// card's placement, zero rows match and models.ErrCardMoveConflict is
// returned; two racing moves validated against the same stale snapshot
// can therefore never both apply.
func (r *CardRepo) MoveCard(ctx context.Context, id types.CardID, fromColumnID, toColumnID types.ColumnID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE pipeline_cards
			 SET column_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND column_id = ?`,
			int64(toColumnID), int64(id), int64(fromColumnID))
		if err != nil {
			return fmt.Errorf("moving card %d: %w", id, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Distinguish a missing card from a lost race
			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM pipeline_cards WHERE id = ?`, int64(id)).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrCardNotFound
			}
			if err != nil {
				return err
			}
			return models.ErrCardMoveConflict
		}
		return nil
	})
}

// UpdateSnapshot replaces the card's opaque data snapshot.
func (r *CardRepo) UpdateSnapshot(ctx context.Context, id types.CardID, snapshot []byte) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pipeline_cards
		 SET data_snapshot_json = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		jsonDoc(snapshot), int64(id))
	if err != nil {
		return fmt.Errorf("updating card %d snapshot: %w", id, err)
	}
	return requireRowAffected(result, models.ErrCardNotFound)
}

func (r *CardRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id types.CardID) (*models.Card, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+cardFields+` FROM pipeline_cards WHERE id = ?`, int64(id))
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCardNotFound
	}
	return card, err
}

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	var snapshot sql.NullString
	err := row.Scan(&c.ID, &c.PipelineID, &c.ColumnID, &c.EntityType, &c.EntityID,
		&c.SortOrder, &snapshot, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.DataSnapshot = scanJSONDoc(snapshot)
	return &c, nil
}
