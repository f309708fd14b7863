package classify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// CohereConfig configures the Cohere-backed classifier.
type CohereConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

const (
	defaultCohereModel   = "command-r"
	defaultCohereTimeout = 60 * time.Second
)

const classifierPreamble = `You classify sports news snippets about roster availability.
Respond with a single JSON object and nothing else, shaped as:
{"category":"absence|suspension|roster_change|other","confidence":0.0,"subject":"team or organization name"}
Confidence is your certainty in the category between 0 and 1.`

// Cohere implements monitor.Classifier against the Cohere chat API.
type Cohere struct {
	client *cohereclient.Client
	model  string
}

// NewCohere builds the client. The HTTP client forces HTTP/1.1 to avoid
// intermittent HTTP/2 protocol errors against the Cohere endpoint.
func NewCohere(cfg CohereConfig) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultCohereModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCohereTimeout
	}
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Cohere{client: client, model: cfg.Model}, nil
}

// Classify sends the text and parses the structured JSON reply.
func (c *Cohere) Classify(ctx context.Context, text string) (monitor.ClassifierResult, error) {
	preamble := classifierPreamble
	temperature := 0.0
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Model:       &c.model,
		Message:     text,
		Preamble:    &preamble,
		Temperature: &temperature,
	})
	if err != nil {
		return monitor.ClassifierResult{}, fmt.Errorf("cohere chat: %w", err)
	}
	return parseResult(resp.Text)
}

// parseResult extracts the JSON object from the model reply, tolerating code
// fences and surrounding prose.
func parseResult(text string) (monitor.ClassifierResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return monitor.ClassifierResult{}, fmt.Errorf("no JSON object in classifier reply")
	}

	var result monitor.ClassifierResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return monitor.ClassifierResult{}, fmt.Errorf("decode classifier reply: %w", err)
	}
	if !result.Category.Valid() {
		result.Category = monitor.CategoryOther
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}
