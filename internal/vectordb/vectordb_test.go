package vectordb

import (
	"context"
	"testing"

	"visa-rag/internal/embedding"
	"visa-rag/internal/models"
)

func testRules() []models.Rule {
	return []models.Rule{
		{ID: "au-student-1", Country: "Australia", Category: "student", Text: "Needs a Confirmation of Enrolment."},
		{ID: "ca-tourist-1", Country: "Canada", Category: "tourist", Text: "Needs proof of funds and ties to home."},
		{ID: "us-work-1", Country: "USA", Category: "work", Text: "Needs an employer petition."},
	}
}

func TestEnsureBuildsOnePerRule(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir(), "visa_rules")
	if err != nil {
		t.Fatal(err)
	}

	rules := testRules()
	embedder := embedding.NewMockEmbedder(16)
	if err := store.Ensure(ctx, rules, embedder, false); err != nil {
		t.Fatal(err)
	}
	if store.Count() != len(rules) {
		t.Fatalf("expected %d embeddings, got %d", len(rules), store.Count())
	}
}

func TestSearchOrderingAndClamping(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir(), "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	rules := testRules()
	embedder := embedding.NewMockEmbedder(16)
	if err := store.Ensure(ctx, rules, embedder, false); err != nil {
		t.Fatal(err)
	}

	query, err := embedder.EmbedQuery(ctx, "do I need bank statements?")
	if err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(ctx, query, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not ordered best first: %v", hits)
	}

	// k larger than the index returns every rule, never an error
	hits, err = store.Search(ctx, query, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != len(rules) {
		t.Fatalf("expected %d hits with oversized k, got %d", len(rules), len(hits))
	}

	known := make(map[string]bool)
	for _, r := range rules {
		known[r.ID] = true
	}
	for _, h := range hits {
		if !known[h.ID] {
			t.Errorf("search returned unknown id %s", h.ID)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	store, err := Open(t.TempDir(), "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	hits, err := store.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits from empty index, got %d", len(hits))
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rules := testRules()
	embedder := embedding.NewMockEmbedder(16)

	store, err := Open(dir, "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Ensure(ctx, rules, embedder, false); err != nil {
		t.Fatal(err)
	}
	query, _ := embedder.EmbedQuery(ctx, "student enrolment")
	before, err := store.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}

	// a fresh open reuses the on-disk cache without re-embedding
	reopened, err := Open(dir, "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Count() != len(rules) {
		t.Fatalf("expected cached count %d, got %d", len(rules), reopened.Count())
	}
	if err := reopened.Ensure(ctx, rules, failingEmbedder{}, false); err != nil {
		t.Fatalf("cached reuse should not re-embed: %v", err)
	}

	after, err := reopened.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("result count changed across reopen: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("result %d changed across reopen: %s vs %s", i, before[i].ID, after[i].ID)
		}
		if before[i].Score != after[i].Score {
			t.Errorf("score %d changed across reopen: %v vs %v", i, before[i].Score, after[i].Score)
		}
	}
}

func TestEnsureRebuildsOnCountMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(16)

	store, err := Open(dir, "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Ensure(ctx, testRules(), embedder, false); err != nil {
		t.Fatal(err)
	}

	grown := append(testRules(), models.Rule{ID: "uk-student-1", Country: "UK", Category: "student", Text: "Needs a CAS."})
	reopened, err := Open(dir, "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Ensure(ctx, grown, embedder, false); err != nil {
		t.Fatal(err)
	}
	if reopened.Count() != len(grown) {
		t.Fatalf("expected rebuild to %d embeddings, got %d", len(grown), reopened.Count())
	}
}

func TestEnsureForceRebuild(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir(), "visa_rules")
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(16)
	if err := store.Ensure(ctx, testRules(), embedder, false); err != nil {
		t.Fatal(err)
	}
	if err := store.Ensure(ctx, testRules(), embedder, true); err != nil {
		t.Fatal(err)
	}
	if store.Count() != len(testRules()) {
		t.Fatalf("expected %d embeddings after forced rebuild, got %d", len(testRules()), store.Count())
	}
}

// failingEmbedder proves cached paths never call the embedder.
type failingEmbedder struct{}

func (failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	panic("embedder must not be called when the cache is valid")
}
