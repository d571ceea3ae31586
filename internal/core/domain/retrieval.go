package domain

// SectionType records how a chunk boundary was chosen.
type SectionType string

const (
	// SectionTypeHeading means the chunk came from a heading-delimited section.
	SectionTypeHeading SectionType = "section"
	// SectionTypeWindow means the chunk came from the fixed-size fallback.
	SectionTypeWindow SectionType = "window"
)

// PublicDepartment is visible to every caller regardless of scope.
const PublicDepartment = "public"

// Chunk is one indexed unit of document text. Chunks are created once at
// ingestion time and never mutated; deleting the source document removes
// its chunks from every index.
type Chunk struct {
	ID           string      `json:"id"`
	DocumentID   string      `json:"document_id"`
	Department   string      `json:"department"`
	Ordinal      int         `json:"ordinal"`
	Text         string      `json:"text"`
	SectionTitle string      `json:"section_title,omitempty"`
	SectionType  SectionType `json:"section_type"`
	Keywords     []string    `json:"keywords,omitempty"`
}

// Roles carried by conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one prior exchange considered during query rewriting.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Strategy names the retrieval path that produced a candidate.
type Strategy string

const (
	StrategyDense  Strategy = "dense"
	StrategySparse Strategy = "sparse"
)

// Candidate is a scored chunk from a single retrieval strategy, before fusion.
type Candidate struct {
	Chunk    Chunk
	Score    float64
	Strategy Strategy
}

// FusedCandidate carries both per-strategy scores and the combined score.
// Ordering is by fused score, ties broken by dense score, then document id,
// then ordinal, so results are deterministic across runs.
type FusedCandidate struct {
	Chunk       Chunk   `json:"chunk"`
	DenseScore  float64 `json:"dense_score"`
	SparseScore float64 `json:"sparse_score"`
	FusedScore  float64 `json:"fused_score"`
}

// RerankedCandidate is a fused candidate after the cross-encoder pass.
type RerankedCandidate struct {
	Chunk       Chunk   `json:"chunk"`
	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score"`
}

// RelevanceReport aggregates the final candidate set against a threshold.
type RelevanceReport struct {
	IsRelevant    bool    `json:"is_relevant"`
	MaxScore      float64 `json:"max_score"`
	AvgScore      float64 `json:"avg_score"`
	RelevantCount int     `json:"relevant_count"`
	RelevantRatio float64 `json:"relevant_ratio"`
	Threshold     float64 `json:"threshold"`
}

// RouteStrategy is the terminal state of one routed query.
type RouteStrategy string

const (
	RouteDocumentBased    RouteStrategy = "document_based"
	RouteGeneralKnowledge RouteStrategy = "general_knowledge"
)

// Degradations annotates which pipeline stages fell back to a degraded
// path. A degraded query still produces a decision; these flags exist so
// callers and logs can tell a clean result from a limping one.
type Degradations struct {
	RewriteFailed bool `json:"rewrite_failed,omitempty"`
	DenseFailed   bool `json:"dense_failed,omitempty"`
	SparseFailed  bool `json:"sparse_failed,omitempty"`
	RerankSkipped bool `json:"rerank_skipped,omitempty"`
}

// Any reports whether at least one stage degraded.
func (d Degradations) Any() bool {
	return d.RewriteFailed || d.DenseFailed || d.SparseFailed || d.RerankSkipped
}

// RouteRequest is one retrieval call. Departments comes from the caller's
// authorization boundary; the core never widens it beyond adding public.
// Threshold and TopK override configured defaults when positive.
type RouteRequest struct {
	Query       string             `json:"query"`
	Turns       []ConversationTurn `json:"turns,omitempty"`
	Departments []string           `json:"departments"`
	Threshold   float64            `json:"threshold,omitempty"`
	TopK        int                `json:"top_k,omitempty"`
}

// RouteDecision is the router's output: the chosen answering strategy, the
// ordered candidates backing it (empty for general_knowledge), and the
// report that justified the decision.
type RouteDecision struct {
	Strategy        RouteStrategy       `json:"strategy"`
	StandaloneQuery string              `json:"standalone_query"`
	Candidates      []RerankedCandidate `json:"candidates"`
	Report          RelevanceReport     `json:"report"`
	Degraded        Degradations        `json:"degraded"`
}
