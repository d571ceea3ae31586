package sparse

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"hrkb/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Index is an in-memory BM25 inverted index over chunks, partitioned by
// department. Mutation takes an exclusive section only on the affected
// department's postings, so queries against other departments keep
// reading while one department re-indexes.
type Index struct {
	mu          sync.RWMutex
	departments map[string]*departmentIndex
}

type departmentIndex struct {
	mu       sync.RWMutex
	chunks   map[string]domain.Chunk
	postings map[string]map[string]int // term -> chunk id -> term frequency
	lengths  map[string]int            // chunk id -> token count
	totalLen int
}

func NewIndex() *Index {
	return &Index{departments: make(map[string]*departmentIndex)}
}

func (idx *Index) Add(chunks []domain.Chunk) {
	byDept := make(map[string][]domain.Chunk)
	for _, chunk := range chunks {
		byDept[chunk.Department] = append(byDept[chunk.Department], chunk)
	}

	for dept, deptChunks := range byDept {
		di := idx.department(dept)
		di.mu.Lock()
		for _, chunk := range deptChunks {
			di.add(chunk)
		}
		di.mu.Unlock()
	}
}

func (idx *Index) DeleteByDocument(documentID string) {
	idx.mu.RLock()
	departments := make([]*departmentIndex, 0, len(idx.departments))
	for _, di := range idx.departments {
		departments = append(departments, di)
	}
	idx.mu.RUnlock()

	for _, di := range departments {
		di.mu.Lock()
		di.deleteByDocument(documentID)
		di.mu.Unlock()
	}
}

// Search scores every in-scope chunk against the query with BM25 and
// returns the top candidates in deterministic order.
func (idx *Index) Search(ctx context.Context, query string, departments []string, limit int) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := Tokenize(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	scope := scopeWithPublic(departments)
	var out []domain.Candidate
	for _, dept := range scope {
		idx.mu.RLock()
		di, ok := idx.departments[dept]
		idx.mu.RUnlock()
		if !ok {
			continue
		}
		di.mu.RLock()
		out = append(out, di.score(terms)...)
		di.mu.RUnlock()
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Chunk.DocumentID != out[j].Chunk.DocumentID {
			return out[i].Chunk.DocumentID < out[j].Chunk.DocumentID
		}
		return out[i].Chunk.Ordinal < out[j].Chunk.Ordinal
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (idx *Index) department(name string) *departmentIndex {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	di, ok := idx.departments[name]
	if !ok {
		di = &departmentIndex{
			chunks:   make(map[string]domain.Chunk),
			postings: make(map[string]map[string]int),
			lengths:  make(map[string]int),
		}
		idx.departments[name] = di
	}
	return di
}

func (di *departmentIndex) add(chunk domain.Chunk) {
	if _, exists := di.chunks[chunk.ID]; exists {
		return
	}
	tokens := Tokenize(chunk.Text)
	if title := chunk.SectionTitle; title != "" {
		tokens = append(tokens, Tokenize(title)...)
	}
	if len(tokens) == 0 {
		return
	}

	di.chunks[chunk.ID] = chunk
	di.lengths[chunk.ID] = len(tokens)
	di.totalLen += len(tokens)
	for _, term := range tokens {
		posting, ok := di.postings[term]
		if !ok {
			posting = make(map[string]int)
			di.postings[term] = posting
		}
		posting[chunk.ID]++
	}
}

func (di *departmentIndex) deleteByDocument(documentID string) {
	for id, chunk := range di.chunks {
		if chunk.DocumentID != documentID {
			continue
		}
		for term, posting := range di.postings {
			if _, ok := posting[id]; ok {
				delete(posting, id)
				if len(posting) == 0 {
					delete(di.postings, term)
				}
			}
		}
		di.totalLen -= di.lengths[id]
		delete(di.lengths, id)
		delete(di.chunks, id)
	}
}

func (di *departmentIndex) score(terms []string) []domain.Candidate {
	n := len(di.chunks)
	if n == 0 {
		return nil
	}
	avgLen := float64(di.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range terms {
		posting, ok := di.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for id, tf := range posting {
			norm := 1 - bm25B + bm25B*float64(di.lengths[id])/avgLen
			scores[id] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}

	out := make([]domain.Candidate, 0, len(scores))
	for id, score := range scores {
		out = append(out, domain.Candidate{
			Chunk:    di.chunks[id],
			Score:    score,
			Strategy: domain.StrategySparse,
		})
	}
	return out
}

func scopeWithPublic(departments []string) []string {
	seen := make(map[string]struct{}, len(departments)+1)
	out := make([]string, 0, len(departments)+1)
	for _, dept := range departments {
		if dept == "" {
			continue
		}
		if _, ok := seen[dept]; ok {
			continue
		}
		seen[dept] = struct{}{}
		out = append(out, dept)
	}
	if _, ok := seen[domain.PublicDepartment]; !ok {
		out = append(out, domain.PublicDepartment)
	}
	return out
}

// Tokenize lowercases and splits text into alphanumeric runs plus CJK
// unigrams and bigrams, so both English terms and Chinese phrases score.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	out := make([]string, 0, 32)
	var ascii strings.Builder
	var prevCJK rune

	flushASCII := func() {
		if ascii.Len() > 0 {
			out = append(out, ascii.String())
			ascii.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			ascii.WriteRune(r + ('a' - 'A'))
			prevCJK = 0
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			ascii.WriteRune(r)
			prevCJK = 0
		case unicode.Is(unicode.Han, r):
			flushASCII()
			out = append(out, string(r))
			if prevCJK != 0 {
				out = append(out, string(prevCJK)+string(r))
			}
			prevCJK = r
		default:
			flushASCII()
			prevCJK = 0
		}
	}
	flushASCII()
	return out
}
