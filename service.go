package semsearch

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/index"
	"github.com/flarexio/semsearch/llm"
	"github.com/flarexio/semsearch/session"
)

// Service defines the core logic of semsearch.
type Service interface {

	// Close releases the resources held by the service.
	Close() error

	// Search embeds the query text and returns the k most similar reviews.
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error)

	// SearchVector returns the k reviews most similar to an embedding.
	SearchVector(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error)

	// Reindex replaces the searchable reviews.
	Reindex(ctx context.Context, reviews []dataset.Review) error

	// Stats describes the current index.
	Stats(ctx context.Context) (Stats, error)

	// Chat sends one user turn of a session and returns the reply.
	Chat(ctx context.Context, sessionID string, input string) (string, error)

	// History returns the messages of a session, oldest first.
	History(ctx context.Context, sessionID string) ([]llm.Message, error)

	// ClearSession forgets a session.
	ClearSession(ctx context.Context, sessionID string) error

	// Translate translates text into the target language.
	Translate(ctx context.Context, text string, targetLanguage string) (string, error)
}

type ServiceMiddleware func(Service) Service

// Providers are the remote collaborators of the service. Any of them may
// be nil; the operations that need a missing one fail.
type Providers struct {
	Embedder   llm.Embedder
	Chat       llm.Completer
	Translator llm.Completer
}

const translatePrompt = "Translate the following text into {{.target_language}}:\n\n{{.text}}"

const translateSystemPrompt = "You are a professional translator fluent in every language. " +
	"Translate the user's text accurately into the target language. " +
	"Output only the translation, without explanations, notes or extra text."

type snapshot struct {
	index *index.Index
	stats Stats
}

func newSnapshot(reviews []dataset.Review) (*snapshot, error) {
	idx, err := BuildIndex(reviews)
	if err != nil {
		return nil, err
	}

	stats := Stats{
		Records:   idx.Len(),
		Dimension: idx.Dimension(),
		Scores:    dataset.ScoreDistribution(reviews),
	}

	return &snapshot{idx, stats}, nil
}

func NewService(cfg Config, reviews []dataset.Review, providers Providers) (Service, error) {
	cfg.ApplyDefaults()

	log := zap.L().With(
		zap.String("service", "semsearch"),
	)

	snap, err := newSnapshot(reviews)
	if err != nil {
		return nil, err
	}

	translator := providers.Translator
	if translator == nil {
		translator = providers.Chat
	}

	svc := &service{
		embedder:   providers.Embedder,
		chat:       providers.Chat,
		translator: translator,
		memory:     session.NewMemory(cfg.Chat.HistoryWindow),
		prompt:     prompts.NewPromptTemplate(translatePrompt, []string{"target_language", "text"}),

		cfg: cfg,
		log: log,
	}

	svc.current.Store(snap)

	log.Info("index built",
		zap.Int("records", snap.stats.Records),
		zap.Int("dimension", snap.stats.Dimension),
	)

	return svc, nil
}

type service struct {
	// Swapped wholesale on reindex; queries hold on to the snapshot they
	// started with.
	current atomic.Pointer[snapshot]

	embedder   llm.Embedder
	chat       llm.Completer
	translator llm.Completer

	memory *session.Memory
	prompt prompts.PromptTemplate

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := svc.cfg.RequestTimeout.Duration(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}

	return context.WithCancel(ctx)
}

func (svc *service) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if svc.embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	embedCtx, cancel := svc.withTimeout(ctx)
	defer cancel()

	vector, err := svc.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		return nil, err
	}

	return svc.SearchVector(ctx, vector, k, filter)
}

func (svc *service) SearchVector(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = svc.cfg.Search.DefaultK
	}

	snap := svc.current.Load()

	results, err := snap.index.Query(vector, k, toFilter(filter))
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(results))
	for i, result := range results {
		out[i] = RecordToResult(result)
	}

	return out, nil
}

func (svc *service) Reindex(ctx context.Context, reviews []dataset.Review) error {
	snap, err := newSnapshot(reviews)
	if err != nil {
		return err
	}

	previous := svc.current.Swap(snap)

	svc.log.Info("index rebuilt",
		zap.Int("records", snap.stats.Records),
		zap.Int("previous_records", previous.stats.Records),
	)

	return nil
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	stats := svc.current.Load().stats

	scores := make(map[int]int, len(stats.Scores))
	for score, count := range stats.Scores {
		scores[score] = count
	}
	stats.Scores = scores

	return stats, nil
}

func (svc *service) Chat(ctx context.Context, sessionID string, input string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidSessionID
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyText
	}

	if svc.chat == nil {
		return "", ErrCompleterNotSet
	}

	history := svc.memory.Messages(sessionID)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemMessage(svc.cfg.Chat.SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(input))

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	reply, err := svc.chat.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	svc.memory.Append(sessionID,
		llm.UserMessage(input),
		llm.AssistantMessage(reply),
	)

	return reply, nil
}

func (svc *service) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	return svc.memory.Messages(sessionID), nil
}

func (svc *service) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	if !svc.memory.Clear(sessionID) {
		return ErrSessionNotFound
	}

	return nil
}

func (svc *service) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	targetLanguage = strings.TrimSpace(targetLanguage)
	if targetLanguage == "" {
		return "", ErrInvalidLanguage
	}

	if svc.translator == nil {
		return "", ErrCompleterNotSet
	}

	prompt, err := svc.prompt.Format(map[string]any{
		"target_language": targetLanguage,
		"text":            text,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	return svc.translator.Complete(ctx, []llm.Message{
		llm.SystemMessage(translateSystemPrompt),
		llm.UserMessage(prompt),
	})
}

