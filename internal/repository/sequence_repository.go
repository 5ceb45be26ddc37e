package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository hands out per-scope, per-period document numbers.
type SequenceRepository struct{}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository() *SequenceRepository {
	return &SequenceRepository{}
}

// NextTx increments and returns the counter for (scope, period) inside the
// caller's transaction. The upsert holds the row lock until that transaction
// ends. Counters only grow.
func (r *SequenceRepository) NextTx(ctx context.Context, exec sqlx.ExtContext, scope string, period int) (int64, error) {
	const query = `INSERT INTO number_sequences (scope, period, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (scope, period) DO UPDATE SET last_value = number_sequences.last_value + 1
RETURNING last_value`
	var next int64
	if err := sqlx.GetContext(ctx, exec, &next, query, scope, period); err != nil {
		return 0, fmt.Errorf("allocate sequence %s/%d: %w", scope, period, err)
	}
	return next, nil
}
