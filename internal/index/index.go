// Package index owns chunk embedding, storage, similarity query and
// deletion. Search is brute-force cosine similarity over all stored
// vectors, which is exact and fast enough at embedded-store scale.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acelabs/aceai/internal/ai"
)

var (
	// ErrNotFound is returned for point lookups of unknown chunk ids.
	ErrNotFound = errors.New("chunk not found")
	// ErrEmbedding marks an embedding backend failure; the offending item
	// and everything after it in the batch are rejected.
	ErrEmbedding = errors.New("embedding backend failure")
	// ErrBadFilter is returned for filters referencing unknown metadata keys.
	ErrBadFilter = errors.New("invalid metadata filter")
)

// filterColumns maps metadata filter keys to chunk columns. Filters are
// conjunctive equality matches over these keys only.
var filterColumns = map[string]string{
	"source":       "source",
	"file_type":    "file_type",
	"batch_id":     "batch_id",
	"chunk_index":  "chunk_index",
	"total_chunks": "total_chunks",
}

type Index struct {
	db       *gorm.DB
	embedder ai.Embedder
}

func New(db *gorm.DB, embedder ai.Embedder) (*Index, error) {
	if err := db.AutoMigrate(&Chunk{}); err != nil {
		return nil, fmt.Errorf("migrate chunks: %w", err)
	}
	return &Index{db: db, embedder: embedder}, nil
}

// Add embeds each text and stores it under the matching id (generated when
// ids is nil). Items are inserted one by one; a failure rejects the rest of
// the batch but already inserted items stay (best-effort, no rollback).
func (ix *Index) Add(ctx context.Context, texts []string, metas []Metadata, ids []string) error {
	if metas != nil && len(metas) != len(texts) {
		return fmt.Errorf("metadatas length %d does not match texts length %d", len(metas), len(texts))
	}
	if ids != nil && len(ids) != len(texts) {
		return fmt.Errorf("ids length %d does not match texts length %d", len(ids), len(texts))
	}

	for i, text := range texts {
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEmbedding, err)
		}

		var meta Metadata
		if metas != nil {
			meta = metas[i]
		}
		id := ""
		if ids != nil {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}

		chunk := Chunk{
			ID:          id,
			Text:        text,
			Vector:      encodeVector(vec),
			Source:      meta.Source,
			UploadTime:  meta.UploadTime,
			FileType:    meta.FileType,
			ChunkIndex:  meta.ChunkIndex,
			TotalChunks: meta.TotalChunks,
			BatchID:     meta.BatchID,
		}
		if err := ix.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			return fmt.Errorf("store chunk %s: %w", id, err)
		}
	}
	return nil
}

// Query returns the k chunks closest to text, most similar first. Ties are
// broken by insertion order. An empty index yields an empty result, not an
// error.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	queryVec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	var chunks []Chunk
	if err := ix.db.WithContext(ctx).Order("seq ASC").Find(&chunks).Error; err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, Result{
			Chunk:      c,
			Similarity: cosineSimilarity(queryVec, decodeVector(c.Vector)),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// GetByID returns a single chunk or ErrNotFound.
func (ix *Index) GetByID(ctx context.Context, id string) (*Chunk, error) {
	var chunk Chunk
	err := ix.db.WithContext(ctx).Where("id = ?", id).First(&chunk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chunk, nil
}

// DeleteByID removes one chunk, reporting false when the id is unknown.
func (ix *Index) DeleteByID(ctx context.Context, id string) (bool, error) {
	res := ix.db.WithContext(ctx).Where("id = ?", id).Delete(&Chunk{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (ix *Index) filterQuery(ctx context.Context, filter map[string]any) (*gorm.DB, error) {
	if len(filter) == 0 {
		return nil, fmt.Errorf("%w: empty filter", ErrBadFilter)
	}
	q := ix.db.WithContext(ctx).Model(&Chunk{})
	for key, val := range filter {
		col, ok := filterColumns[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key %q", ErrBadFilter, key)
		}
		q = q.Where(col+" = ?", val)
	}
	return q, nil
}

// CountByFilter counts chunks whose metadata matches every filter key.
func (ix *Index) CountByFilter(ctx context.Context, filter map[string]any) (int64, error) {
	q, err := ix.filterQuery(ctx, filter)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByFilter removes every chunk matching all filter keys and returns
// how many went away. Partial deletion is possible on underlying failure.
func (ix *Index) DeleteByFilter(ctx context.Context, filter map[string]any) (int64, error) {
	q, err := ix.filterQuery(ctx, filter)
	if err != nil {
		return 0, err
	}
	res := q.Delete(&Chunk{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListPaginated returns one page of chunks in insertion order plus the
// total index size independent of the page window.
func (ix *Index) ListPaginated(ctx context.Context, limit, offset int) ([]Chunk, int64, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := ix.db.WithContext(ctx).Model(&Chunk{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var chunks []Chunk
	err := ix.db.WithContext(ctx).
		Order("seq ASC").
		Limit(limit).
		Offset(offset).
		Find(&chunks).Error
	if err != nil {
		return nil, 0, err
	}
	return chunks, total, nil
}

// Reset irreversibly clears the entire index.
func (ix *Index) Reset(ctx context.Context) error {
	return ix.db.WithContext(ctx).Exec("DELETE FROM chunks").Error
}
