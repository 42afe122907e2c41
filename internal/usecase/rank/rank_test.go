package rank

import (
	"math"
	"testing"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

const tolerance = 1e-9

func job(id string, embedding ...float32) domain.TextRecord {
	return domain.TextRecord{ID: id, Kind: domain.KindJob, Embedding: embedding}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5}
	b := []float32{2.1, 0.4, -0.7}

	if got, want := Cosine(a, b), Cosine(b, a); math.Abs(got-want) > tolerance {
		t.Errorf("sim(a,b)=%v, sim(b,a)=%v", got, want)
	}
}

func TestCosine_Identity(t *testing.T) {
	a := []float32{0.5, 1.5, -2.0, 3.0}

	if got := Cosine(a, a); math.Abs(got-1) > tolerance {
		t.Errorf("sim(a,a) = %v, want 1", got)
	}
}

func TestCosine_Opposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}

	if got := Cosine(a, b); math.Abs(got+1) > tolerance {
		t.Errorf("sim(a,-a) = %v, want -1", got)
	}
}

func TestCosine_ZeroNorm(t *testing.T) {
	a := []float32{1, 2, 3}
	zero := []float32{0, 0, 0}

	if got := Cosine(a, zero); got != 0 {
		t.Errorf("sim(a,0) = %v, want 0", got)
	}
	if got := Cosine(zero, zero); got != 0 {
		t.Errorf("sim(0,0) = %v, want 0", got)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	if got := Cosine([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("sim on mismatched dims = %v, want 0", got)
	}
}

func TestRank_OrderedDescending(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.TextRecord{
		job("a", 0, 1),       // orthogonal, score 0
		job("b", 1, 0),       // identical direction, score 1
		job("c", 1, 1),       // score ~0.707
		job("d", -1, 0),      // opposite, score -1
	}

	results := Rank("r1", query, candidates, 10)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	wantOrder := []string{"b", "c", "a", "d"}
	for i, want := range wantOrder {
		if results[i].JobID != want {
			t.Errorf("rank %d: got %s, want %s", i+1, results[i].JobID, want)
		}
		if results[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", results[i].Rank, i+1)
		}
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestRank_IdenticalEmbeddingFirst(t *testing.T) {
	query := []float32{0.2, 0.5, 0.8}
	candidates := []domain.TextRecord{
		job("other", 0.9, 0.1, 0.2),
		job("same", 0.2, 0.5, 0.8),
	}

	results := Rank("r1", query, candidates, 2)
	if results[0].JobID != "same" {
		t.Fatalf("expected identical embedding first, got %s", results[0].JobID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("score = %v, want ≈ 1.0", results[0].Score)
	}
}

func TestRank_TieBreakByID(t *testing.T) {
	query := []float32{1, 0}
	// Same score for all three; ids deliberately unsorted.
	candidates := []domain.TextRecord{
		job("z", 2, 0),
		job("a", 5, 0),
		job("m", 1, 0),
	}

	results := Rank("r1", query, candidates, 3)
	wantOrder := []string{"a", "m", "z"}
	for i, want := range wantOrder {
		if results[i].JobID != want {
			t.Errorf("tie order %d: got %s, want %s", i, results[i].JobID, want)
		}
	}
}

func TestRank_ClampsK(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.TextRecord{job("a", 1, 0), job("b", 0, 1)}

	results := Rank("r1", query, candidates, 100)
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}

	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.JobID] {
			t.Errorf("duplicate job %s in results", r.JobID)
		}
		seen[r.JobID] = true
	}
}

func TestRank_KZero(t *testing.T) {
	candidates := []domain.TextRecord{job("a", 1, 0)}

	if results := Rank("r1", []float32{1, 0}, candidates, 0); len(results) != 0 {
		t.Errorf("k=0: got %d results, want 0", len(results))
	}
}

func TestRank_NoCandidates(t *testing.T) {
	if results := Rank("r1", []float32{1, 0}, nil, 5); len(results) != 0 {
		t.Errorf("empty corpus: got %d results, want 0", len(results))
	}
}
