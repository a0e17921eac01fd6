package retriever

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"visa-rag/internal/embedding"
	"visa-rag/internal/models"
	"visa-rag/internal/rules"
	"visa-rag/internal/vectordb"
)

// Retriever embeds a query and asks the vector store for the closest rules.
type Retriever struct {
	embedder embedding.QueryEmbedder
	store    *vectordb.Store
	rules    *rules.Store
}

func New(embedder embedding.QueryEmbedder, store *vectordb.Store, rulesStore *rules.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store, rules: rulesStore}
}

// Retrieve returns up to k rules closest to the query, best match first.
// An empty index yields an empty result and no error: callers treat that
// as "no retrieval context", not a failure.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RuleMatch, error) {
	if r.store.Count() == 0 {
		log.Warn().Msg("Vector index is empty, no rules retrieved")
		return nil, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &models.UpstreamError{Op: "embed query", Err: err}
	}

	hits, err := r.store.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	return r.resolve(hits), nil
}

// RetrieveFiltered retrieves a wider candidate set and narrows it to the
// requested country and category, falling back to country-only and then to
// the unfiltered candidates when a narrower filter matches nothing.
func (r *Retriever) RetrieveFiltered(ctx context.Context, query string, k int, country, category string) ([]models.RuleMatch, error) {
	if country == "" && category == "" {
		return r.Retrieve(ctx, query, k)
	}

	candidates, err := r.Retrieve(ctx, query, k*4)
	if err != nil || len(candidates) == 0 {
		return candidates, err
	}

	filtered := filterMatches(candidates, country, category)
	if len(filtered) == 0 {
		filtered = filterMatches(candidates, country, "")
	}
	if len(filtered) == 0 {
		filtered = candidates
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered, nil
}

func filterMatches(matches []models.RuleMatch, country, category string) []models.RuleMatch {
	var out []models.RuleMatch
	for _, m := range matches {
		if country != "" && !strings.EqualFold(m.Rule.Country, country) {
			continue
		}
		if category != "" && !strings.EqualFold(m.Rule.Category, category) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *Retriever) resolve(hits []vectordb.Hit) []models.RuleMatch {
	matches := make([]models.RuleMatch, 0, len(hits))
	for _, h := range hits {
		rule, ok := r.rules.Get(h.ID)
		if !ok {
			// index holds an ID the rules file no longer has: stale cache
			log.Warn().Str("id", h.ID).Msg("Retrieved id not present in rules store, skipping")
			continue
		}
		matches = append(matches, models.RuleMatch{Rule: rule, Score: h.Score})
	}
	return matches
}
