// Package rank computes exact cosine-similarity top-K over a bounded corpus.
//
// This is brute force, O(n·d) per query with d the embedding dimension. At
// the current corpus size (thousands of vacancies) that is well inside the
// latency envelope; a production-scale corpus would need an
// approximate-nearest-neighbor index, which is explicitly out of scope.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// mismatched dimension or zero norm score 0 — never a divide by zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores candidates against the query vector and returns the top-K as
// ranked MatchResults (no explanations yet). Ordering is strictly descending
// by score with ties broken by record id ascending, so a query is
// deterministic for a fixed corpus. k <= 0 yields an empty slice; k larger
// than the candidate count is clamped.
func Rank(resumeID string, query []float32, candidates []domain.TextRecord, k int) []domain.MatchResult {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	scored := make([]domain.MatchResult, len(candidates))
	now := time.Now().UTC()
	for i, c := range candidates {
		scored[i] = domain.MatchResult{
			ResumeID:    resumeID,
			JobID:       c.ID,
			Score:       Cosine(query, c.Embedding),
			GeneratedAt: now,
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].JobID < scored[j].JobID
	})

	top := scored[:k]
	for i := range top {
		top[i].Rank = i + 1
	}
	return top
}
