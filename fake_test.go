package semsearch

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/flarexio/semsearch/llm"
)

// fakeEmbedder maps known texts to fixed vectors and everything else to a
// deterministic hash-derived vector.
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	vectors map[string][]float32
	calls   int
	texts   int
	err     error
	short   bool
	block   bool
}

func newFakeEmbedder(dim int, vectors map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{
		dim:     dim,
		vectors: vectors,
	}
}

func (e *fakeEmbedder) vector(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, e.dim)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int64(seed>>33)%1000) / 1000
	}
	return v
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	e.texts += len(texts)

	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}

	if e.short {
		out = out[:len(out)-1]
	}

	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if e.err != nil {
		return nil, e.err
	}

	return e.vector(text), nil
}

type fakeCompleter struct {
	mu       sync.Mutex
	received [][]llm.Message
	reply    func(messages []llm.Message) string
	block    bool
}

func (c *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.received = append(c.received, messages)

	if len(messages) == 0 {
		return "", errors.New("no messages")
	}

	if c.reply != nil {
		return c.reply(messages), nil
	}

	return "echo: " + messages[len(messages)-1].Content, nil
}

func (c *fakeCompleter) last() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.received[len(c.received)-1]
}
