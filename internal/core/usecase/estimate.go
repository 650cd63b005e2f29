package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/ports"
)

// EstimateObserver receives pipeline outcomes for metrics. Implementations
// must be safe for concurrent use.
type EstimateObserver interface {
	ObserveInference(jobType domain.JobType, duration time.Duration, err error)
	ObserveUnsavedResult()
}

type noopObserver struct{}

func (noopObserver) ObserveInference(domain.JobType, time.Duration, error) {}
func (noopObserver) ObserveUnsavedResult()                                 {}

type EstimateUseCase struct {
	repo       ports.EstimateRepository
	invoker    ports.ModelInvoker
	policyText string
	observer   EstimateObserver
}

func NewEstimateUseCase(
	repo ports.EstimateRepository,
	invoker ports.ModelInvoker,
	policyText string,
	observer EstimateObserver,
) *EstimateUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &EstimateUseCase{
		repo:       repo,
		invoker:    invoker,
		policyText: policyText,
		observer:   observer,
	}
}

// Estimate runs the full pipeline: assemble the prompt, invoke the model,
// interpret the output, append the record. A storage failure on the append is
// downgraded to SaveOutcome{Saved: false} because the inference call has
// already happened and been paid for; discarding its result helps nobody.
func (uc *EstimateUseCase) Estimate(ctx context.Context, req domain.EstimationRequest) (*domain.EstimateResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	doc := domain.AssemblePrompt(req)

	start := time.Now()
	rawText, err := uc.invoker.Invoke(ctx, uc.policyText, doc)
	uc.observer.ObserveInference(req.JobType, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	resultText, confidence, err := Interpret(rawText)
	if err != nil {
		return nil, err
	}

	record := &domain.EstimateRecord{
		AgentLabel:   nullable(req.AgentLabel),
		JobType:      req.JobType,
		DumpsterSize: req.DumpsterSize,
		Notes:        nullable(req.Notes),
		PhotoCount:   req.PhotoCount(),
		ModelName:    uc.invoker.ModelName(),
		ResultText:   resultText,
		Confidence:   confidence,
	}

	result := &domain.EstimateResult{
		ResultText: resultText,
		Confidence: confidence,
	}

	if err := uc.repo.Append(ctx, record); err != nil {
		uc.observer.ObserveUnsavedResult()
		slog.Warn("estimate_not_saved", "job_type", string(req.JobType), "error", err)
		return result, nil
	}

	result.Save = domain.SaveOutcome{Saved: true, ID: record.ID, CreatedAt: record.CreatedAt}
	return result, nil
}

func validateRequest(req domain.EstimationRequest) error {
	if len(req.Shots) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate submission", errors.New("at least one photo is required"))
	}
	if req.DumpsterSize != nil && *req.DumpsterSize <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate submission", errors.New("dumpster size must be positive"))
	}
	return nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
