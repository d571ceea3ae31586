package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hrkb/internal/infrastructure/resilience"
)

// Reranker calls the DashScope text-rerank endpoint, which lives outside
// the OpenAI-compatible surface and has its own request shape.
type Reranker struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func NewReranker(url, apiKey, model string, rps float64) *Reranker {
	if rps <= 0 {
		rps = 10
	}
	return &Reranker{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// WithExecutor routes scoring calls through the retry/breaker policy.
func (r *Reranker) WithExecutor(executor *resilience.Executor) *Reranker {
	r.executor = executor
	return r
}

// Score returns one relevance score per input text, in input order. The
// whole candidate set goes out in a single batched request.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model": r.model,
		"input": map[string]any{
			"query":     query,
			"documents": texts,
		},
		"parameters": map[string]any{
			"return_documents": false,
			"top_n":            len(texts),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	var response struct {
		Output struct {
			Results []struct {
				Index          int     `json:"index"`
				RelevanceScore float64 `json:"relevance_score"`
			} `json:"results"`
		} `json:"output"`
	}
	post := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create rerank request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("dashscope rerank request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &HTTPStatusError{
				Operation:  "rerank",
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       strings.TrimSpace(string(raw)),
			}
		}
		return json.NewDecoder(resp.Body).Decode(&response)
	}
	if r.executor != nil {
		err = r.executor.Execute(ctx, "dashscope.rerank", post, ClassifyError)
	} else {
		err = post(ctx)
	}
	if err != nil {
		return nil, WrapTemporary("rerank", err)
	}

	out := make([]float64, len(texts))
	matched := 0
	for _, result := range response.Output.Results {
		if result.Index >= 0 && result.Index < len(out) {
			out[result.Index] = result.RelevanceScore
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("rerank response matched no inputs")
	}
	return out, nil
}
