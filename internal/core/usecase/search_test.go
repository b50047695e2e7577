package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

type embedderFake struct {
	vector []float32
	err    error
	calls  int
	task   domain.EmbeddingTask
	text   string
}

func (f *embedderFake) Generate(_ context.Context, text string, task domain.EmbeddingTask) ([]float32, error) {
	f.calls++
	f.text = text
	f.task = task
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type storedSource struct {
	match  domain.SourceMatch
	vector []float32
}

// memoryIndexFake ranks by cosine distance with id as tie-breaker, like the SQL query.
type memoryIndexFake struct {
	sources []storedSource
	err     error
	calls   int
	limit   int
}

func (f *memoryIndexFake) Search(_ context.Context, query []float32, limit int) ([]domain.SourceMatch, error) {
	f.calls++
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}

	type ranked struct {
		match    domain.SourceMatch
		distance float64
	}
	all := make([]ranked, 0, len(f.sources))
	for _, s := range f.sources {
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(s.vector[i])
		}
		m := s.match
		m.Similarity = dot
		all = append(all, ranked{match: m, distance: 1 - dot})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].match.ID < all[j].match.ID
	})

	out := make([]domain.SourceMatch, 0, limit)
	for i := 0; i < len(all) && i < limit; i++ {
		out = append(out, all[i].match)
	}
	return out, nil
}

func threeSourceCorpus() *memoryIndexFake {
	c := float32(math.Sqrt2 / 2)
	return &memoryIndexFake{sources: []storedSource{
		{match: domain.SourceMatch{ID: 1, Title: "A"}, vector: []float32{1, 0}},
		{match: domain.SourceMatch{ID: 2, Title: "B"}, vector: []float32{0, 1}},
		{match: domain.SourceMatch{ID: 3, Title: "C"}, vector: []float32{c, c}},
	}}
}

func TestSearchRanksByCosineDistance(t *testing.T) {
	embedder := &embedderFake{vector: []float32{1, 0}}
	uc := NewSourceRetriever(embedder, threeSourceCorpus())

	matches, err := uc.Search(context.Background(), "transformers", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Title != "A" || matches[1].Title != "C" {
		t.Fatalf("expected [A C], got [%s %s]", matches[0].Title, matches[1].Title)
	}
	if embedder.task != domain.TaskQuery {
		t.Fatalf("expected query task type, got %q", embedder.task)
	}
}

func TestSearchReturnsMinOfTopKAndCorpus(t *testing.T) {
	for _, topK := range []int{1, 2, 3, 4, 10} {
		uc := NewSourceRetriever(&embedderFake{vector: []float32{0, 1}}, threeSourceCorpus())
		matches, err := uc.Search(context.Background(), "q", topK)
		if err != nil {
			t.Fatalf("Search(topK=%d) error = %v", topK, err)
		}
		want := topK
		if want > 3 {
			want = 3
		}
		if len(matches) != want {
			t.Fatalf("topK=%d: expected %d matches, got %d", topK, want, len(matches))
		}
	}
}

func TestSearchIsDeterministicUnderTies(t *testing.T) {
	index := &memoryIndexFake{sources: []storedSource{
		{match: domain.SourceMatch{ID: 9, Title: "late"}, vector: []float32{0, 1}},
		{match: domain.SourceMatch{ID: 4, Title: "early"}, vector: []float32{0, 1}},
		{match: domain.SourceMatch{ID: 6, Title: "middle"}, vector: []float32{0, 1}},
	}}
	uc := NewSourceRetriever(&embedderFake{vector: []float32{1, 0}}, index)

	first, err := uc.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := uc.Search(context.Background(), "q", 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		for j := range first {
			if first[j].ID != again[j].ID {
				t.Fatalf("run %d: order changed at %d: %d vs %d", i, j, first[j].ID, again[j].ID)
			}
		}
	}
	if first[0].ID != 4 || first[1].ID != 6 || first[2].ID != 9 {
		t.Fatalf("expected id tie-break [4 6 9], got [%d %d %d]", first[0].ID, first[1].ID, first[2].ID)
	}
}

func TestSearchEmptyCorpusReturnsEmptySlice(t *testing.T) {
	uc := NewSourceRetriever(&embedderFake{vector: []float32{1, 0}}, &memoryIndexFake{})

	matches, err := uc.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", matches)
	}
}

func TestSearchRejectsInvalidArgumentsWithoutExternalCalls(t *testing.T) {
	cases := []struct {
		name  string
		query string
		topK  int
	}{
		{name: "empty query", query: "", topK: 5},
		{name: "blank query", query: "  \t", topK: 5},
		{name: "zero top_k", query: "x", topK: 0},
		{name: "negative top_k", query: "x", topK: -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			embedder := &embedderFake{vector: []float32{1, 0}}
			index := threeSourceCorpus()
			uc := NewSourceRetriever(embedder, index)

			_, err := uc.Search(context.Background(), tc.query, tc.topK)
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if embedder.calls != 0 || index.calls != 0 {
				t.Fatalf("expected no external calls, got embedder=%d index=%d", embedder.calls, index.calls)
			}
		})
	}
}

func TestSearchPropagatesEmbeddingFailure(t *testing.T) {
	embedErr := domain.WrapError(domain.ErrEmbeddingProvider, "embed", errors.New("timeout"))
	index := threeSourceCorpus()
	uc := NewSourceRetriever(&embedderFake{err: embedErr}, index)

	matches, err := uc.Search(context.Background(), "q", 5)
	if !domain.IsKind(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches, got %v", matches)
	}
	if index.calls != 0 {
		t.Fatalf("index must not be queried after embedding failure")
	}
}

func TestSearchPropagatesDatastoreFailure(t *testing.T) {
	storeErr := domain.WrapError(domain.ErrDatastoreUnavailable, "search", errors.New("relation does not exist"))
	uc := NewSourceRetriever(&embedderFake{vector: []float32{1, 0}}, &memoryIndexFake{err: storeErr})

	_, err := uc.Search(context.Background(), "q", 5)
	if !domain.IsKind(err, domain.ErrDatastoreUnavailable) {
		t.Fatalf("expected ErrDatastoreUnavailable, got %v", err)
	}
}
