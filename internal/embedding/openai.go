package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "text-embedding-3-large"

	defaultMaxAttempts = 4
	baseBackoff        = 500 * time.Millisecond
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. A batch of
// texts is embedded in a single request; transient failures (429 and 5xx) are
// retried with exponential backoff, honoring Retry-After when present.
type OpenAIEmbedder struct {
	baseURL     string
	apiKey      string
	model       string
	dimensions  int
	maxAttempts int
	httpClient  *http.Client
	logger      *zap.Logger
	sleep       func(time.Duration)
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithBaseURL overrides the API base URL (for compatible providers or tests).
func WithBaseURL(url string) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.baseURL = strings.TrimRight(url, "/") }
}

// WithModel overrides the embedding model.
func WithModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.httpClient = c }
}

// WithMaxRetries sets how many times a failed request is retried after the
// initial attempt. Zero disables retries.
func WithMaxRetries(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n >= 0 {
			e.maxAttempts = n + 1
		}
	}
}

// WithOpenAILogger sets a logger for retry diagnostics.
func WithOpenAILogger(l *zap.Logger) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.logger = l }
}

// NewOpenAIEmbedder creates an embedder for the given API key and expected
// vector dimensionality.
func NewOpenAIEmbedder(apiKey string, dimensions int, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}
	e := &OpenAIEmbedder{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		model:       defaultModel,
		dimensions:  dimensions,
		maxAttempts: defaultMaxAttempts,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call and returns vectors in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	resp, err := e.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(out.Data), len(texts))
	}

	// The API reports each vector's input position; order by it rather than
	// trusting response order.
	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(d.Embedding), e.dimensions)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("embeddings response missing vector for input %d", i)
		}
	}
	return vecs, nil
}

// doWithRetry posts the request body, retrying transient failures. The body is
// re-sent from the marshaled bytes on each attempt.
func (e *OpenAIEmbedder) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := baseBackoff * time.Duration(1<<(attempt-1))
			if lastErr != nil {
				if ra, ok := lastErr.(*retryableError); ok && ra.retryAfter > wait {
					wait = ra.retryAfter
				}
			}
			if e.logger != nil {
				e.logger.Warn("retrying embeddings request",
					zap.Int("attempt", attempt+1),
					zap.Duration("wait", wait),
					zap.Error(lastErr))
			}
			e.sleep(wait)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embeddings request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			lastErr = &retryableError{err: err}
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		httpErr := fmt.Errorf("embeddings http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &retryableError{err: httpErr, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
			continue
		}
		return nil, httpErr
	}
	return nil, fmt.Errorf("embeddings request failed after %d attempts: %w", e.maxAttempts, lastErr)
}

type retryableError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Dimensions returns the expected embedding dimensionality.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the embedder holds no persistent connections.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
