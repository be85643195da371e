package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNextNumberIncrementsPerScopeAndYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderSequenceRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.GetNextNumber(ctx, domain.SequenceScopeOrder, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Other scopes and years count independently
	got, err := repo.GetNextNumber(ctx, domain.SequenceScopeAccount, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = repo.GetNextNumber(ctx, domain.SequenceScopeOrder, 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestCreateFirstLosingInsertRaceRetriesIncrement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderSequenceRepository(db)
	ctx := context.Background()

	// A concurrent first-of-year caller already created the counter row
	// between our failed increment and our insert attempt.
	winner := domain.OrderSequence{
		Scope:        domain.SequenceScopeOrder,
		Year:         2026,
		LastSequence: 1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, db.Create(&winner).Error)

	got, err := repo.createFirst(ctx, domain.SequenceScopeOrder, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	var seq domain.OrderSequence
	require.NoError(t, db.Where("scope = ? AND year = ?", domain.SequenceScopeOrder, 2026).First(&seq).Error)
	assert.Equal(t, 2, seq.LastSequence)
}

func TestIncrementReportsMissingCounterRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderSequenceRepository(db)

	got, err := repo.increment(context.Background(), domain.SequenceScopeOrder, 2026)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestGetCurrentSequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderSequenceRepository(db)
	ctx := context.Background()

	got, err := repo.GetCurrentSequence(ctx, domain.SequenceScopeOrder, 2026)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = repo.GetNextNumber(ctx, domain.SequenceScopeOrder, 2026)
	require.NoError(t, err)

	got, err = repo.GetCurrentSequence(ctx, domain.SequenceScopeOrder, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
