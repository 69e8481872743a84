package semsearch

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Search       endpoint.Endpoint
	Stats        endpoint.Endpoint
	Chat         endpoint.Endpoint
	History      endpoint.Endpoint
	ClearSession endpoint.Endpoint
	Translate    endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Search:       SearchEndpoint(svc),
		Stats:        StatsEndpoint(svc),
		Chat:         ChatEndpoint(svc),
		History:      HistoryEndpoint(svc),
		ClearSession: ClearSessionEndpoint(svc),
		Translate:    TranslateEndpoint(svc),
	}
}

type SearchRequest struct {
	Query  string            `json:"query" form:"query"`
	Vector []float32         `json:"vector,omitempty" form:"-"`
	K      int               `json:"k,omitempty" form:"k"`
	Score  int               `json:"score,omitempty" form:"score"`
	Filter map[string]string `json:"filter,omitempty" form:"-"`
}

// Filters merges the score shorthand into the filter map.
func (req SearchRequest) Filters() map[string]string {
	if req.Score == 0 {
		return req.Filter
	}

	filter := ScoreFilter(req.Score)
	for key, value := range req.Filter {
		if key != MetadataScore {
			filter[key] = value
		}
	}

	return filter
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		if len(req.Vector) > 0 {
			return svc.SearchVector(ctx, req.Vector, req.K, req.Filters())
		}

		return svc.Search(ctx, req.Query, req.K, req.Filters())
	}
}

func StatsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Stats(ctx)
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func ChatEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ChatRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		reply, err := svc.Chat(ctx, req.SessionID, req.Input)
		if err != nil {
			return nil, err
		}

		return ChatResponse{
			SessionID: req.SessionID,
			Reply:     reply,
		}, nil
	}
}

func HistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.History(ctx, sessionID)
	}
}

func ClearSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.ClearSession(ctx, sessionID)
		return nil, err
	}
}

type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type TranslateResponse struct {
	Translation string `json:"translation"`
}

func TranslateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(TranslateRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		translation, err := svc.Translate(ctx, req.Text, req.TargetLanguage)
		if err != nil {
			return nil, err
		}

		return TranslateResponse{translation}, nil
	}
}
