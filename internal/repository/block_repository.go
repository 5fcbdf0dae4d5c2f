package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/neurobridge/scheduling-api/internal/models"
)

// ErrDuplicate is returned when a unique pair already exists.
var ErrDuplicate = errors.New("row already exists")

// BlockRepository reads and maintains educator-family block relationships.
// The scheduling engine consults Exists on every proposal; block state is
// never cached so moderation takes effect on the next check.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository creates a new block repository.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Exists reports whether the pair is blocked in either direction of use.
func (r *BlockRepository) Exists(ctx context.Context, educatorID, familyID string) (bool, error) {
	const query = `SELECT EXISTS (
SELECT 1 FROM block_relationships WHERE educator_id = $1 AND family_id = $2)`
	var blocked bool
	if err := r.db.GetContext(ctx, &blocked, query, educatorID, familyID); err != nil {
		return false, fmt.Errorf("check block relationship: %w", err)
	}
	return blocked, nil
}

// Create inserts a block row; the (educator_id, family_id) pair is unique.
func (r *BlockRepository) Create(ctx context.Context, block *models.BlockRelationship) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	block.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO block_relationships (id, educator_id, family_id, reason, created_at)
VALUES (:id, :educator_id, :family_id, :reason, :created_at)
ON CONFLICT (educator_id, family_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, block)
	if err != nil {
		return fmt.Errorf("insert block relationship: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert block relationship rows: %w", err)
	}
	if rows == 0 {
		return ErrDuplicate
	}
	return nil
}

// Delete removes a block row by id.
func (r *BlockRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM block_relationships WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete block relationship: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete block relationship rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByEducator returns all blocks involving the educator.
func (r *BlockRepository) ListByEducator(ctx context.Context, educatorID string) ([]models.BlockRelationship, error) {
	const query = `SELECT id, educator_id, family_id, reason, created_at
FROM block_relationships WHERE educator_id = $1 ORDER BY created_at DESC`
	var blocks []models.BlockRelationship
	if err := r.db.SelectContext(ctx, &blocks, query, educatorID); err != nil {
		return nil, fmt.Errorf("list block relationships: %w", err)
	}
	return blocks, nil
}
