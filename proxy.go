package semsearch

import (
	"context"
	"errors"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/llm"
)

var ErrNotSupportedByProxy = errors.New("method not supported by proxy")

func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	req := SearchRequest{
		Query:  query,
		K:      k,
		Filter: filter,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]Result)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) SearchVector(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	req := SearchRequest{
		Vector: vector,
		K:      k,
		Filter: filter,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]Result)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

// Reindex needs the full embedded dataset, which is not sent over the wire.
func (mw *proxyMiddleware) Reindex(ctx context.Context, reviews []dataset.Review) error {
	return ErrNotSupportedByProxy
}

func (mw *proxyMiddleware) Stats(ctx context.Context) (Stats, error) {
	resp, err := mw.endpoints.Stats(ctx, nil)
	if err != nil {
		return Stats{}, err
	}

	stats, ok := resp.(Stats)
	if !ok {
		return Stats{}, errors.New("invalid response type")
	}

	return stats, nil
}

func (mw *proxyMiddleware) Chat(ctx context.Context, sessionID string, input string) (string, error) {
	req := ChatRequest{
		SessionID: sessionID,
		Input:     input,
	}

	resp, err := mw.endpoints.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	result, ok := resp.(ChatResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return result.Reply, nil
}

func (mw *proxyMiddleware) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	resp, err := mw.endpoints.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, ok := resp.([]llm.Message)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return messages, nil
}

func (mw *proxyMiddleware) ClearSession(ctx context.Context, sessionID string) error {
	_, err := mw.endpoints.ClearSession(ctx, sessionID)
	return err
}

func (mw *proxyMiddleware) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	req := TranslateRequest{
		Text:           text,
		TargetLanguage: targetLanguage,
	}

	resp, err := mw.endpoints.Translate(ctx, req)
	if err != nil {
		return "", err
	}

	result, ok := resp.(TranslateResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return result.Translation, nil
}
