package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSequenceService(t *testing.T) *SequenceService {
	db := testutil.SetupTestDB(t)
	return NewSequenceService(repository.NewOrderSequenceRepository(db), zap.NewNop())
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	svc := newSequenceService(t)
	ctx := context.Background()
	year := time.Now().Year()

	number, err := svc.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD-%d-00001", year), number)
}

func TestGenerateOrderNumberIncrements(t *testing.T) {
	svc := newSequenceService(t)
	ctx := context.Background()
	year := time.Now().Year()

	seen := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		number, err := svc.GenerateOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ORD-%d-%05d", year, i), number)
		assert.False(t, seen[number], "number %s issued twice", number)
		seen[number] = true
	}
}

func TestOrderAndAccountSequencesAreIndependent(t *testing.T) {
	svc := newSequenceService(t)
	ctx := context.Background()
	year := time.Now().Year()

	orderNum, err := svc.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	accountNum, err := svc.GenerateAccountNumber(ctx)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ORD-%d-00001", year), orderNum)
	assert.Equal(t, fmt.Sprintf("ACC-%d-0001", year), accountNum)

	current, err := svc.GetCurrentSequence(ctx, domain.SequenceScopeOrder, year)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
}

func TestGetCurrentSequenceUnusedScope(t *testing.T) {
	svc := newSequenceService(t)

	current, err := svc.GetCurrentSequence(context.Background(), domain.SequenceScopeAccount, 1999)
	require.NoError(t, err)
	assert.Equal(t, 0, current)
}
