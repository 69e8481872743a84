package semsearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/index"
	"github.com/flarexio/semsearch/llm"
	"github.com/flarexio/semsearch/vector"
)

const DefaultBatchSize = 16

const metadataRaw = "raw"

// EmbeddingCache stores embeddings keyed by model and content in a vector
// collection. The raw vector is kept in metadata since the collection
// stores a normalized copy.
type EmbeddingCache struct {
	collection vector.Collection
	model      string
}

func NewEmbeddingCache(collection vector.Collection, model string) *EmbeddingCache {
	return &EmbeddingCache{
		collection: collection,
		model:      model,
	}
}

func (c *EmbeddingCache) documentID(content string) string {
	hash := sha256.Sum256([]byte(c.model + "|" + content))
	return "emb_" + hex.EncodeToString(hash[:12])
}

// Get returns the cached embedding for content, if any.
func (c *EmbeddingCache) Get(ctx context.Context, content string) ([]float32, bool) {
	id := c.documentID(content)

	doc, err := c.collection.FindDocument(ctx, id)
	if err != nil || doc.ID != id {
		return nil, false
	}

	var raw []float32
	if err := json.Unmarshal([]byte(doc.Metadata[metadataRaw]), &raw); err != nil {
		return nil, false
	}

	return raw, true
}

func (c *EmbeddingCache) Put(ctx context.Context, content string, embedding []float32) error {
	bs, err := json.Marshal(embedding)
	if err != nil {
		return err
	}

	doc := vector.Document{
		ID:      c.documentID(content),
		Content: content,
		Metadata: map[string]string{
			"model":     c.model,
			metadataRaw: string(bs),
		},
		Embedding: slices.Clone(embedding),
	}

	return c.collection.AddDocument(ctx, doc)
}

// Invalidate drops the cached embeddings of the given contents.
func (c *EmbeddingCache) Invalidate(ctx context.Context, contents ...string) error {
	ids := make([]string, len(contents))
	for i, content := range contents {
		ids[i] = c.documentID(content)
	}

	return c.collection.Delete(ctx, ids...)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	return c.collection.Count()
}

// EmbedReviews fills in the embedding of every review, in batches. Cached
// embeddings are reused; only misses reach the embedder. The input slice
// is not modified.
func EmbedReviews(ctx context.Context, embedder llm.Embedder, cache *EmbeddingCache, reviews []dataset.Review, batchSize int) ([]dataset.Review, error) {
	log := zap.L().With(
		zap.String("action", "embed_reviews"),
		zap.Int("reviews", len(reviews)),
	)

	if embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([]dataset.Review, len(reviews))
	copy(out, reviews)

	var pending []int
	for i := range out {
		if cache != nil {
			if embedding, ok := cache.Get(ctx, out[i].Content); ok {
				out[i].Embedding = embedding
				continue
			}
		}

		pending = append(pending, i)
	}

	log.Info("embedding reviews",
		zap.Int("cached", len(out)-len(pending)),
		zap.Int("pending", len(pending)),
	)

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for j, i := range batch {
			texts[j] = out[i].Content
		}

		embeddings, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d: %w", start/batchSize, err)
		}

		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCountFault, len(embeddings), len(texts))
		}

		for j, i := range batch {
			out[i].Embedding = embeddings[j]

			if cache != nil {
				if err := cache.Put(ctx, texts[j], embeddings[j]); err != nil {
					log.Warn(err.Error(), zap.String("review_id", out[i].ID))
				}
			}
		}

		log.Debug("batch embedded", zap.Int("done", end), zap.Int("total", len(pending)))
	}

	return out, nil
}

// BuildIndex builds a search index over embedded reviews.
func BuildIndex(reviews []dataset.Review) (*index.Index, error) {
	records := make([]index.Record, len(reviews))
	for i, review := range reviews {
		records[i] = ReviewToRecord(review)
	}

	return index.Build(records)
}
