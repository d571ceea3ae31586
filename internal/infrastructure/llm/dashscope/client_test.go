package dashscope

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedOrdersVectorsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("missing auth header, got %q", got)
		}
		// Out-of-order response indices must not reorder outputs.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "key", "chat", "embed", 100))
	got, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 || got[0][0] != 0.1 || got[1][0] != 0.3 {
		t.Fatalf("vectors out of order: %v", got)
	}
}

func TestEmbedMissingVectorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "chat", "embed", 100))
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing embedding")
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" 年假政策 "}}]}`))
	}))
	defer server.Close()

	completion := NewCompletion(New(server.URL, "", "qwen-plus", "embed", 100))
	got, err := completion.Complete(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "年假政策" {
		t.Fatalf("expected trimmed content, got %q", got)
	}
	if captured["model"] != "qwen-plus" {
		t.Fatalf("expected chat model in request, got %v", captured["model"])
	}
}

func TestCompleteStatusErrorIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	completion := NewCompletion(New(server.URL, "", "chat", "embed", 100))
	_, err := completion.Complete(context.Background(), "p")
	if err == nil {
		t.Fatalf("expected error")
	}
	class := ClassifyError(err)
	if !class.Retryable || !class.RecordFailure {
		t.Fatalf("expected 429 classified retryable, got %+v", class)
	}
}

func TestRerankerScoresByInputIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		input, _ := payload["input"].(map[string]any)
		docs, _ := input["documents"].([]any)
		if len(docs) != 3 {
			t.Fatalf("expected 3 documents in one batch, got %d", len(docs))
		}
		_, _ = w.Write([]byte(`{"output":{"results":[
			{"index":2,"relevance_score":0.9},
			{"index":0,"relevance_score":0.4}
		]}}`))
	}))
	defer server.Close()

	reranker := NewReranker(server.URL, "", "gte-rerank", 100)
	got, err := reranker.Score(context.Background(), "q", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(got) != 3 || got[0] != 0.4 || got[1] != 0 || got[2] != 0.9 {
		t.Fatalf("unexpected scores %v", got)
	}
}

func TestRerankerEmptyResultsFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"output":{"results":[]}}`))
	}))
	defer server.Close()

	reranker := NewReranker(server.URL, "", "gte-rerank", 100)
	if _, err := reranker.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatalf("expected error for empty rerank results")
	}
}
