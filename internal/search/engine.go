// Package search turns natural-language queries into ranked media results.
package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/index"
	"github.com/hyperjump/omoide/internal/models"
)

// Engine embeds the query text and ranks indexed media by similarity.
type Engine struct {
	embedder embedding.Embedder
	index    *index.SimilarityIndex
	config   *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(embedder embedding.Embedder, idx *index.SimilarityIndex, cfg *config.SearchConfig) *Engine {
	return &Engine{
		embedder: embedder,
		index:    idx,
		config:   cfg,
	}
}

// Search embeds the query and returns the top matches. Results whose file no
// longer exists on disk are dropped; the index keeps their rows until the
// next full rebuild.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}

	queryEmbedding, err := e.embedder.EmbedText(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	scored, err := e.index.Search(ctx, queryEmbedding, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	results := make([]models.ScoredEntry, 0, len(scored))
	for _, entry := range scored {
		if _, statErr := os.Stat(entry.FilePath); statErr != nil {
			continue
		}
		results = append(results, entry)
	}

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}
