package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/semsearch"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

// MethodNotFound answers requests for methods without an endpoint.
func MethodNotFound(id mcp.RequestId) mcp.JSONRPCError {
	return errorResponse(id, mcp.METHOD_NOT_FOUND, "method not found")
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

func MakeEndpoints(svc semsearch.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}

const MCPSERVER_INSTRUCTIONS string = `semsearch answers questions over a corpus of food product reviews:

1. **Semantic Search**: Find the reviews closest in meaning to a natural language query
2. **Rating Filter**: Restrict the search to reviews with a given star rating
3. **Translation**: Translate text into any target language

Available tools:
- semantic_search: top-k reviews by cosine similarity
- translate: translate text into a target language`

const (
	ToolSemanticSearch = "semantic_search"
	ToolTranslate      = "translate"
)

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolSemanticSearch,
			mcp.WithDescription("Search food product reviews by meaning and return the most similar ones."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural language query, e.g. \"my dog loves this food\""),
			),
			mcp.WithNumber("k",
				mcp.Description("Number of reviews to return (default 5)"),
			),
			mcp.WithNumber("score",
				mcp.Description("Only return reviews with this star rating (1-5)"),
			),
		),
		mcp.NewTool(ToolTranslate,
			mcp.WithDescription("Translate text into a target language."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to translate"),
			),
			mcp.WithString("target_language",
				mcp.Required(),
				mcp.Description("Target language, e.g. English, Japanese, French"),
			),
		),
	}
}

func InitializeEndpoint(svc semsearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "semsearch",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc semsearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{},
		}
	}
}

func ListToolsEndpoint(svc semsearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc semsearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		args, _ := params.Arguments.(map[string]any)

		var (
			result *mcp.CallToolResult
			err    error
		)

		switch params.Name {
		case ToolSemanticSearch:
			result, err = callSemanticSearch(ctx, svc, args)

		case ToolTranslate:
			result, err = callTranslate(ctx, svc, args)

		default:
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		if err != nil {
			return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func stringArgument(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("required argument %q not found", key)
	}

	return value, nil
}

func intArgument(args map[string]any, key string) int {
	switch value := args[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case string:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Tool failures are reported inside the result so the calling model can
// see them; only encoding problems become JSON-RPC errors.
func callSemanticSearch(ctx context.Context, svc semsearch.Service, args map[string]any) (*mcp.CallToolResult, error) {
	query, err := stringArgument(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	k := intArgument(args, "k")

	var filter map[string]string
	if score := intArgument(args, "score"); score > 0 {
		filter = semsearch.ScoreFilter(score)
	}

	results, err := svc.Search(ctx, query, k, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bs, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}

func callTranslate(ctx context.Context, svc semsearch.Service, args map[string]any) (*mcp.CallToolResult, error) {
	text, err := stringArgument(args, "text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	targetLanguage, err := stringArgument(args, "target_language")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	translation, err := svc.Translate(ctx, text, targetLanguage)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(translation), nil
}
