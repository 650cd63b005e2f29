package usecase

import (
	"errors"
	"regexp"
	"strings"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

var confidencePattern = regexp.MustCompile(`(?i)confidence:\s*(low|medium|high)`)

// Interpret validates the raw model output and extracts the confidence label.
// The result text itself is stored and displayed as-is: format compliance is a
// best-effort instruction to the model, not a contract this service enforces.
// A missing confidence label is missing metadata, never an error.
func Interpret(raw string) (string, *domain.Confidence, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", nil, domain.WrapError(domain.ErrInference, "interpret model output", errors.New("empty response from model"))
	}
	return text, ParseConfidence(text), nil
}

// ParseConfidence finds a "Confidence: <Low|Medium|High>" token anywhere in
// the text, case-insensitively, and normalizes it to title case.
func ParseConfidence(text string) *domain.Confidence {
	match := confidencePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	var c domain.Confidence
	switch strings.ToLower(match[1]) {
	case "low":
		c = domain.ConfidenceLow
	case "medium":
		c = domain.ConfidenceMedium
	case "high":
		c = domain.ConfidenceHigh
	default:
		return nil
	}
	return &c
}
