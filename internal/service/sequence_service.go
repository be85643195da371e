package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"go.uber.org/zap"
)

// SequenceService generates unique, formatted numbers for orders and
// accounts. Each series has its own per-year counter; the format is owned
// here and opaque to callers, who rely only on uniqueness.
//
// Examples: ORD-2026-00042, ACC-2026-0007
type SequenceService struct {
	repo   *repository.OrderSequenceRepository
	logger *zap.Logger
}

// NewSequenceService creates a new SequenceService
func NewSequenceService(
	repo *repository.OrderSequenceRepository,
	logger *zap.Logger,
) *SequenceService {
	return &SequenceService{
		repo:   repo,
		logger: logger,
	}
}

// GenerateOrderNumber generates a unique order number.
// Format: ORD-YYYY-NNNNN (zero-padded to 5 digits)
func (s *SequenceService) GenerateOrderNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.SequenceScopeOrder, "ORD", 5)
}

// GenerateAccountNumber generates a unique account number.
// Format: ACC-YYYY-NNNN (zero-padded to 4 digits)
func (s *SequenceService) GenerateAccountNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.SequenceScopeAccount, "ACC", 4)
}

// generateNumber is the internal method that generates a formatted number
func (s *SequenceService) generateNumber(ctx context.Context, scope domain.SequenceScope, prefix string, width int) (string, error) {
	year := time.Now().Year()

	// Get the next sequence number (atomic operation)
	nextSeq, err := s.repo.GetNextNumber(ctx, scope, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("scope", string(scope)),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", scope, err)
	}

	number := fmt.Sprintf("%s-%d-%0*d", prefix, year, width, nextSeq)

	s.logger.Info("generated number",
		zap.String("number", number),
		zap.String("scope", string(scope)),
		zap.Int("year", year),
		zap.Int("sequence", nextSeq))

	return number, nil
}

// GetCurrentSequence returns the current sequence value for a scope/year
// without incrementing it. Returns 0 if no sequence exists.
func (s *SequenceService) GetCurrentSequence(ctx context.Context, scope domain.SequenceScope, year int) (int, error) {
	return s.repo.GetCurrentSequence(ctx, scope, year)
}
