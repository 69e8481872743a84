package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/llm"
)

// RequestTimeout bounds a request whose context carries no deadline.
// Chat and translate wait on a language model, so it is longer than
// nats.DefaultTimeout.
var RequestTimeout = 30 * time.Second

func MakeEndpoints(nc *nats.Conn, prefix string) *semsearch.EndpointSet {
	return &semsearch.EndpointSet{
		Search:       SearchEndpoint(nc, prefix+".search"),
		Stats:        StatsEndpoint(nc, prefix+".stats"),
		Chat:         ChatEndpoint(nc, prefix+".chat"),
		History:      HistoryEndpoint(nc, prefix+".history"),
		ClearSession: ClearSessionEndpoint(nc, prefix+".clear_session"),
		Translate:    TranslateEndpoint(nc, prefix+".translate"),
	}
}

func doRequest(ctx context.Context, nc *nats.Conn, topic string, data []byte) (*nats.Msg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
	}

	resp, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(semsearch.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := doRequest(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var results []semsearch.Result
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func StatsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := doRequest(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		var stats semsearch.Stats
		if err := json.Unmarshal(resp.Data, &stats); err != nil {
			return nil, err
		}

		return stats, nil
	}
}

func ChatEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(semsearch.ChatRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := doRequest(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var result semsearch.ChatResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func HistoryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, []byte(sessionID))
		if err != nil {
			return nil, err
		}

		var messages []llm.Message
		if err := json.Unmarshal(resp.Data, &messages); err != nil {
			return nil, err
		}

		return messages, nil
	}
}

func ClearSessionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		_, err := doRequest(ctx, nc, topic, []byte(sessionID))
		if err != nil {
			return nil, err
		}

		return nil, nil
	}
}

func TranslateEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(semsearch.TranslateRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := doRequest(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var result semsearch.TranslateResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
