package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/index"
	"github.com/flarexio/semsearch/llm"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, semsearch.ErrEmptyQuery),
		errors.Is(err, semsearch.ErrEmptyText),
		errors.Is(err, semsearch.ErrInvalidLanguage),
		errors.Is(err, semsearch.ErrInvalidSessionID),
		errors.Is(err, index.ErrValidation),
		errors.Is(err, index.ErrDimensionMismatch):
		return "400"

	case errors.Is(err, semsearch.ErrSessionNotFound):
		return "404"

	default:
		return "417"
	}
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req semsearch.SearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		results, ok := resp.([]semsearch.Result)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&results)
	}
}

func StatsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		stats, ok := resp.(semsearch.Stats)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&stats)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req semsearch.ChatRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func HistoryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		sessionID := string(r.Data())
		if sessionID == "" {
			r.Error("400", "session id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, sessionID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		messages, ok := resp.([]llm.Message)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&messages)
	}
}

func ClearSessionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		sessionID := string(r.Data())
		if sessionID == "" {
			r.Error("400", "session id is required", nil)
			return
		}

		ctx := context.Background()
		_, err := endpoint(ctx, sessionID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func TranslateHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req semsearch.TranslateRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}
