package vectordb

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"visa-rag/internal/embedding"
	"visa-rag/internal/models"
)

// Hit is a single similarity-search result. Score is cosine similarity,
// higher is closer.
type Hit struct {
	ID    string
	Score float32
}

// Store wraps a persistent chromem-go collection holding one embedding per
// rule. Documents added to a persistent DB are written through to disk, so
// the on-disk cache is always in step with the in-memory collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dataDir    string
	name       string
}

const compress = false

// Open opens (or creates) the persistent vector database under dataDir.
// An unreadable cache is dropped and recreated rather than aborting; the
// caller's Ensure pass rebuilds the embeddings.
func Open(dataDir, collectionName string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dataDir, compress)
	if err != nil {
		log.Warn().Err(err).Str("dir", dataDir).Msg("Embedding cache unreadable, discarding")
		if rmErr := os.RemoveAll(dataDir); rmErr != nil {
			return nil, fmt.Errorf("discard cache dir %s: %v: %w", dataDir, rmErr, models.ErrCacheCorrupt)
		}
		db, err = chromem.NewPersistentDB(dataDir, compress)
		if err != nil {
			return nil, fmt.Errorf("recreate cache dir %s: %v: %w", dataDir, err, models.ErrCacheCorrupt)
		}
	}

	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create/get collection: %v", err)
	}

	return &Store{
		db:         db,
		collection: c,
		dataDir:    dataDir,
		name:       collectionName,
	}, nil
}

// Count returns the number of embeddings in the collection.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Ensure makes the collection hold exactly one embedding per rule. A cached
// collection whose count matches the rules count is reused as-is; contents
// are not checksummed against the rules file, so edits without a count
// change keep serving the cached embeddings until the cache is deleted or
// -rebuild is passed.
func (s *Store) Ensure(ctx context.Context, rules []models.Rule, embedder embedding.QueryEmbedder, force bool) error {
	if !force && s.collection.Count() == len(rules) {
		log.Info().Int("count", s.collection.Count()).Msg("Reusing cached embeddings")
		return nil
	}

	log.Info().
		Int("cached", s.collection.Count()).
		Int("rules", len(rules)).
		Bool("force", force).
		Msg("Rebuilding vector index")

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("drop collection: %v", err)
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %v", err)
	}
	s.collection = c

	if len(rules) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(rules))
	for i, rule := range rules {
		vec, err := embedder.EmbedQuery(ctx, rule.Text)
		if err != nil {
			return fmt.Errorf("embed rule %s: %w", rule.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:      rule.ID,
			Content: rule.Text,
			Metadata: map[string]string{
				"country":  rule.Country,
				"category": rule.Category,
				"title":    rule.Title,
			},
			Embedding: vec,
		})
		if (i+1)%10 == 0 || i+1 == len(rules) {
			log.Debug().Int("done", i+1).Int("total", len(rules)).Msg("Embedding rules")
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %v", err)
	}
	log.Info().Int("count", len(docs)).Msg("Vector index built")
	return nil
}

// Search returns up to k hits ordered best match first. k is clamped to the
// collection size; an empty collection yields no hits and no error.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Hit, error) {
	n := s.collection.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("query by similarity: %v", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Score: r.Similarity})
	}
	return hits, nil
}
