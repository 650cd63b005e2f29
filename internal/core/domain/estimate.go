package domain

import (
	"fmt"
	"strings"
	"time"
)

type JobType string

const (
	JobTypeStandard         JobType = "STANDARD"
	JobTypeDumpsterCleanout JobType = "DUMPSTER_CLEANOUT"
	JobTypeDumpsterOverflow JobType = "DUMPSTER_OVERFLOW"
	JobTypeContainerService JobType = "CONTAINER_SERVICE"
)

// ParseJobType normalizes and validates the submitted job type. The set is
// closed on purpose: an unknown value fails at the intake boundary instead of
// silently reaching the model.
func ParseJobType(raw string) (JobType, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return JobTypeStandard, nil
	}
	switch JobType(value) {
	case JobTypeStandard, JobTypeDumpsterCleanout, JobTypeDumpsterOverflow, JobTypeContainerService:
		return JobType(value), nil
	default:
		return "", WrapError(ErrInvalidInput, "parse job type", fmt.Errorf("unknown job type %q", raw))
	}
}

const (
	MaxAgentLabelLength = 80
	MaxNotesLength      = 4000
)

// ImageBlob is one uploaded image with its declared media type.
type ImageBlob struct {
	MimeType string
	Data     []byte
}

// Shot pairs a photo with its optional hand-drawn scope overlay. Pairing is
// positional: overlay i annotates photo i, with no filename-based matching.
type Shot struct {
	Photo   ImageBlob
	Overlay *ImageBlob
}

// EstimationRequest is one validated submission, built once at upload intake.
type EstimationRequest struct {
	JobType      JobType
	DumpsterSize *float64
	AgentLabel   string
	Notes        string
	Shots        []Shot
}

func (r EstimationRequest) PhotoCount() int {
	return len(r.Shots)
}

type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// EstimateRecord is the durable outcome of one completed inference call.
// Records are append-only: never mutated, never deleted by this service.
type EstimateRecord struct {
	ID           int64       `json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	AgentLabel   *string     `json:"agent_label"`
	JobType      JobType     `json:"job_type"`
	DumpsterSize *float64    `json:"dumpster_size"`
	Notes        *string     `json:"notes"`
	PhotoCount   int         `json:"photo_count"`
	ModelName    string      `json:"model_name"`
	ResultText   string      `json:"result_text"`
	Confidence   *Confidence `json:"confidence"`
}

// EstimateSummary is the history listing row.
type EstimateSummary struct {
	ID            int64       `json:"id"`
	CreatedAt     time.Time   `json:"created_at"`
	AgentLabel    *string     `json:"agent_label"`
	JobType       JobType     `json:"job_type"`
	DumpsterSize  *float64    `json:"dumpster_size"`
	PhotoCount    int         `json:"photo_count"`
	Confidence    *Confidence `json:"confidence"`
	ResultPreview string      `json:"result_preview"`
}

// SaveOutcome reports whether the computed result made it into the store.
// A failed append is an explicit degraded branch, not an error: the caller has
// already paid for the inference call and still gets the result back.
type SaveOutcome struct {
	Saved     bool
	ID        int64
	CreatedAt time.Time
}

// EstimateResult is what the pipeline hands back to the HTTP layer.
type EstimateResult struct {
	ResultText string
	Confidence *Confidence
	Save       SaveOutcome
}
