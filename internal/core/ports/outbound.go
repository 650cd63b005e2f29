package ports

import (
	"context"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

// EstimateRepository persists completed estimates and serves the history
// read path. Append assigns the record id and creation timestamp.
type EstimateRepository interface {
	Append(ctx context.Context, record *domain.EstimateRecord) error
	List(ctx context.Context, limit int) ([]domain.EstimateSummary, error)
	GetByID(ctx context.Context, id int64) (*domain.EstimateRecord, error)
}

// ModelInvoker sends the policy text and an assembled prompt document to the
// hosted multimodal model and returns its raw free-text output.
type ModelInvoker interface {
	Invoke(ctx context.Context, policyText string, doc domain.PromptDocument) (string, error)
	ModelName() string
}

// SessionStore tracks authenticated sessions by opaque token.
type SessionStore interface {
	Create(ttl time.Duration) (token string)
	IsAuthenticated(token string) bool
	Destroy(token string)
}
