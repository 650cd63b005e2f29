package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.openai.com"

// hard ceiling on requested output length, independent of configuration
const maxOutputTokensCeiling = 600

type Client struct {
	baseURL         string
	apiKey          string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	executor        *resilience.Executor
	usageRecorder   UsageRecorder
}

// UsageRecorder receives token usage reported by the provider.
type UsageRecorder interface {
	RecordTokenUsage(model string, promptTokens, completionTokens int)
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func WithUsageRecorder(recorder UsageRecorder) Option {
	return func(c *Client) { c.usageRecorder = recorder }
}

func New(apiKey, model string, maxOutputTokens int, opts ...Option) *Client {
	if maxOutputTokens <= 0 || maxOutputTokens > maxOutputTokensCeiling {
		maxOutputTokens = maxOutputTokensCeiling
	}
	c := &Client{
		baseURL:         defaultBaseURL,
		apiKey:          apiKey,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		executor:        resilience.NewExecutor(resilience.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ModelName() string { return c.model }

// contentPart mirrors one element of the Responses API user content array.
type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesRequest struct {
	Model           string    `json:"model"`
	Instructions    string    `json:"instructions"`
	Input           []message `json:"input"`
	MaxOutputTokens int       `json:"max_output_tokens"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type responsesReply struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke delivers the policy text verbatim as the model instructions and the
// assembled prompt document as one interleaved text+image user message, then
// returns the model's free-text output. Provider failures, transport failures
// and empty output all surface as ErrInference.
func (c *Client) Invoke(ctx context.Context, policyText string, doc domain.PromptDocument) (string, error) {
	request := responsesRequest{
		Model:           c.model,
		Instructions:    policyText,
		Input:           []message{{Role: "user", Content: encodeSegments(doc.Segments)}},
		MaxOutputTokens: c.maxOutputTokens,
	}

	var reply responsesReply
	err := c.executor.Execute(ctx, "openai_responses", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/responses", request, &reply, "responses")
	}, classifyProviderError)
	if err != nil {
		return "", wrapInference("invoke model", err)
	}
	if reply.Error != nil {
		return "", wrapInference("invoke model", errors.New(reply.Error.Message))
	}

	if c.usageRecorder != nil {
		c.usageRecorder.RecordTokenUsage(c.model, reply.Usage.InputTokens, reply.Usage.OutputTokens)
	}

	text := strings.TrimSpace(collectOutputText(reply))
	if text == "" {
		return "", domain.WrapError(domain.ErrInference, "invoke model", errors.New("empty response from model"))
	}
	return text, nil
}

// encodeSegments is the only provider-specific view of the prompt document:
// text segments become input_text parts, image segments become base64 data
// URLs. Segment order is preserved exactly.
func encodeSegments(segments []domain.Segment) []contentPart {
	parts := make([]contentPart, 0, len(segments))
	for _, seg := range segments {
		switch seg.Kind {
		case domain.SegmentText:
			parts = append(parts, contentPart{Type: "input_text", Text: seg.Text})
		case domain.SegmentImage:
			parts = append(parts, contentPart{
				Type:     "input_image",
				ImageURL: fmt.Sprintf("data:%s;base64,%s", seg.Image.MimeType, base64.StdEncoding.EncodeToString(seg.Image.Data)),
			})
		}
	}
	return parts
}

func collectOutputText(reply responsesReply) string {
	var b strings.Builder
	for _, item := range reply.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" {
				b.WriteString(content.Text)
			}
		}
	}
	return b.String()
}
