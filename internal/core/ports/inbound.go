package ports

import (
	"context"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

// EstimateService is the inbound contract for the estimation pipeline.
type EstimateService interface {
	Estimate(ctx context.Context, req domain.EstimationRequest) (*domain.EstimateResult, error)
}

// HistoryService is the inbound read model over stored estimates.
type HistoryService interface {
	List(ctx context.Context, limit int) ([]domain.EstimateSummary, error)
	GetByID(ctx context.Context, id int64) (*domain.EstimateRecord, error)
}

// AuthGate verifies the shared PIN and manages session lifecycle. It is the
// single seam a future multi-user identity model would replace.
type AuthGate interface {
	Login(pin string) (token string, err error)
	Logout(token string)
	IsAuthenticated(token string) bool
}
