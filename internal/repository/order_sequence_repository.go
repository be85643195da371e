package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// OrderSequenceRepository handles database operations for number sequences.
// Sequences are scoped per series (orders, accounts) and year so numbering
// restarts each year without collisions.
type OrderSequenceRepository struct {
	db *gorm.DB
}

// NewOrderSequenceRepository creates a new OrderSequenceRepository
func NewOrderSequenceRepository(db *gorm.DB) *OrderSequenceRepository {
	return &OrderSequenceRepository{db: db}
}

// GetNextNumber atomically retrieves and increments the sequence for a
// scope/year. The increment is a single UPDATE against the counter row so
// concurrent callers never observe the same value. If no sequence exists
// for the scope/year, it creates one starting at 1.
//
// Returns the next sequence number to use (already incremented in DB).
func (r *OrderSequenceRepository) GetNextNumber(ctx context.Context, scope domain.SequenceScope, year int) (int, error) {
	next, err := r.increment(ctx, scope, year)
	if err != nil || next > 0 {
		return next, err
	}
	return r.createFirst(ctx, scope, year)
}

// increment bumps the counter row and reads back the new value in one
// transaction. Returns 0 when no counter row exists yet for the scope/year.
func (r *OrderSequenceRepository) increment(ctx context.Context, scope domain.SequenceScope, year int) (int, error) {
	var next int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.OrderSequence{}).
			Where("scope = ? AND year = ?", scope, year).
			Updates(map[string]interface{}{
				"last_sequence": gorm.Expr("last_sequence + 1"),
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to increment sequence: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var seq domain.OrderSequence
		if err := tx.Where("scope = ? AND year = ?", scope, year).First(&seq).Error; err != nil {
			return fmt.Errorf("failed to read sequence after increment: %w", err)
		}
		next = seq.LastSequence
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// createFirst inserts the first counter row for a scope/year. Two callers
// racing on the first number of a year both see no row to increment, and
// only one insert survives idx_sequence_scope_year; the loser retries the
// increment against the winner's row instead of failing the caller.
func (r *OrderSequenceRepository) createFirst(ctx context.Context, scope domain.SequenceScope, year int) (int, error) {
	seq := domain.OrderSequence{
		Scope:        scope,
		Year:         year,
		LastSequence: 1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	createErr := r.db.WithContext(ctx).Create(&seq).Error
	if createErr == nil {
		return 1, nil
	}

	next, err := r.increment(ctx, scope, year)
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return 0, fmt.Errorf("failed to create sequence: %w", createErr)
	}
	return next, nil
}

// GetCurrentSequence retrieves the current sequence value without incrementing.
// Returns 0 if no sequence exists for the scope/year.
func (r *OrderSequenceRepository) GetCurrentSequence(ctx context.Context, scope domain.SequenceScope, year int) (int, error) {
	var seq domain.OrderSequence
	result := r.db.WithContext(ctx).
		Where("scope = ? AND year = ?", scope, year).
		First(&seq)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", result.Error)
	}

	return seq.LastSequence, nil
}
