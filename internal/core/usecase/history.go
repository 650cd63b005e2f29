package usecase

import (
	"context"
	"fmt"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/ports"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 300
)

type HistoryUseCase struct {
	repo ports.EstimateRepository
}

func NewHistoryUseCase(repo ports.EstimateRepository) *HistoryUseCase {
	return &HistoryUseCase{repo: repo}
}

// List returns stored summaries newest first. The limit is clamped to
// [1, MaxHistoryLimit]; zero or negative values fall back to the default.
func (uc *HistoryUseCase) List(ctx context.Context, limit int) ([]domain.EstimateSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := uc.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	return rows, nil
}

func (uc *HistoryUseCase) GetByID(ctx context.Context, id int64) (*domain.EstimateRecord, error) {
	record, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch estimate by id: %w", err)
	}
	return record, nil
}
