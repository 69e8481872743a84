package semsearch

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/llm"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "semsearch"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func filterFields(log *zap.Logger, k int, filter map[string]string) *zap.Logger {
	if k > 0 {
		log = log.With(
			zap.Int("k", k),
		)
	}

	for key, value := range filter {
		log = log.With(
			zap.String("filter."+key, value),
		)
	}

	return log
}

func (mw *loggingMiddleware) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", query),
	)

	log = filterFields(log, k, filter)

	results, err := mw.next.Search(ctx, query, k, filter)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("reviews searched", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) SearchVector(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	log := mw.log.With(
		zap.String("action", "search_vector"),
		zap.Int("dimension", len(vector)),
	)

	log = filterFields(log, k, filter)

	results, err := mw.next.SearchVector(ctx, vector, k, filter)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("reviews searched", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) Reindex(ctx context.Context, reviews []dataset.Review) error {
	log := mw.log.With(
		zap.String("action", "reindex"),
		zap.Int("reviews", len(reviews)),
	)

	err := mw.next.Reindex(ctx, reviews)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("reviews reindexed")
	return nil
}

func (mw *loggingMiddleware) Stats(ctx context.Context) (Stats, error) {
	log := mw.log.With(
		zap.String("action", "stats"),
	)

	stats, err := mw.next.Stats(ctx)
	if err != nil {
		log.Error(err.Error())
		return Stats{}, err
	}

	log.Debug("stats retrieved", zap.Int("records", stats.Records))
	return stats, nil
}

func (mw *loggingMiddleware) Chat(ctx context.Context, sessionID string, input string) (string, error) {
	log := mw.log.With(
		zap.String("action", "chat"),
		zap.String("session_id", sessionID),
	)

	reply, err := mw.next.Chat(ctx, sessionID, input)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("chat replied", zap.Int("reply_length", len(reply)))
	return reply, nil
}

func (mw *loggingMiddleware) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	log := mw.log.With(
		zap.String("action", "history"),
		zap.String("session_id", sessionID),
	)

	messages, err := mw.next.History(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("history listed", zap.Int("count", len(messages)))
	return messages, nil
}

func (mw *loggingMiddleware) ClearSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "clear_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.ClearSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session cleared")
	return nil
}

func (mw *loggingMiddleware) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	log := mw.log.With(
		zap.String("action", "translate"),
		zap.String("target_language", targetLanguage),
		zap.Int("text_length", len(text)),
	)

	result, err := mw.next.Translate(ctx, text, targetLanguage)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("text translated")
	return result, nil
}
