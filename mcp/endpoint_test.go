package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/semsearch"
)

func TestUnmarshalInitializeRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 1,
	  "method": "initialize",
	  "params": {
	    "protocolVersion": "2024-11-05",
	    "capabilities": {
	      "roots": {
	        "listChanged": true
	      },
	      "sampling": {},
	      "elicitation": {}
	    },
	    "clientInfo": {
	      "name": "ExampleClient",
	      "title": "Example Client Display Name",
	      "version": "1.0.0"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(1)), req.ID)
	assert.Equal(mcp.MethodInitialize, req.Method)
	assert.Equal("2024-11-05", params.ProtocolVersion)
}

func TestUnmarshalCallToolRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 2,
	  "method": "tools/call",
	  "params": {
	    "name": "get_weather",
	    "arguments": {
	      "location": "New York"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(2)), req.ID)
	assert.Equal(mcp.MethodToolsCall, req.Method)
	assert.Equal("get_weather", params.Name)
	assert.Contains(params.Arguments, "location")

	var callToolReq mcp.CallToolRequest
	if err := json.Unmarshal(input, &callToolReq); err != nil {
		assert.Fail(err.Error())
		return
	}
}

type stubService struct {
	semsearch.Service

	query  string
	k      int
	filter map[string]string

	text           string
	targetLanguage string
}

func (svc *stubService) Search(ctx context.Context, query string, k int, filter map[string]string) ([]semsearch.Result, error) {
	svc.query = query
	svc.k = k
	svc.filter = filter

	return []semsearch.Result{
		{ID: "1", ProductID: "B001", Score: 5, Content: "Great dog food.", Similarity: 0.9},
	}, nil
}

func (svc *stubService) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	if targetLanguage == "" {
		return "", semsearch.ErrInvalidLanguage
	}

	svc.text = text
	svc.targetLanguage = targetLanguage
	return "translated: " + text, nil
}

func callTool(t *testing.T, svc semsearch.Service, input string) mcp.JSONRPCMessage {
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatal(err)
	}

	return CallToolEndpoint(svc)(context.Background(), req)
}

func TestCallToolSemanticSearch(t *testing.T) {
	assert := assert.New(t)

	svc := new(stubService)
	msg := callTool(t, svc, `{
	  "jsonrpc": "2.0",
	  "id": 3,
	  "method": "tools/call",
	  "params": {
	    "name": "semantic_search",
	    "arguments": {"query": "my dog loves it", "k": 3, "score": 5}
	  }
	}`)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	assert.Equal("my dog loves it", svc.query)
	assert.Equal(3, svc.k)
	assert.Equal(map[string]string{semsearch.MetadataScore: "5"}, svc.filter)

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !assert.True(ok) {
		return
	}

	assert.False(result.IsError)
	if assert.Len(result.Content, 1) {
		text, ok := result.Content[0].(mcp.TextContent)
		if assert.True(ok) {
			var results []semsearch.Result
			err := json.Unmarshal([]byte(text.Text), &results)
			if assert.NoError(err) && assert.Len(results, 1) {
				assert.Equal("B001", results[0].ProductID)
			}
		}
	}
}

func TestCallToolMissingQuery(t *testing.T) {
	assert := assert.New(t)

	msg := callTool(t, new(stubService), `{
	  "jsonrpc": "2.0",
	  "id": 4,
	  "method": "tools/call",
	  "params": {"name": "semantic_search", "arguments": {}}
	}`)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if assert.True(ok) {
		assert.True(result.IsError)
	}
}

func TestCallToolTranslate(t *testing.T) {
	assert := assert.New(t)

	svc := new(stubService)
	msg := callTool(t, svc, `{
	  "jsonrpc": "2.0",
	  "id": 5,
	  "method": "tools/call",
	  "params": {
	    "name": "translate",
	    "arguments": {"text": "這個很好吃", "target_language": "English"}
	  }
	}`)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	assert.Equal("English", svc.targetLanguage)

	result, ok := resp.Result.(*mcp.CallToolResult)
	if assert.True(ok) && assert.Len(result.Content, 1) {
		text, ok := result.Content[0].(mcp.TextContent)
		if assert.True(ok) {
			assert.Equal("translated: 這個很好吃", text.Text)
		}
	}
}

func TestCallToolUnknown(t *testing.T) {
	assert := assert.New(t)

	msg := callTool(t, new(stubService), `{
	  "jsonrpc": "2.0",
	  "id": 6,
	  "method": "tools/call",
	  "params": {"name": "get_weather", "arguments": {}}
	}`)

	resp, ok := msg.(mcp.JSONRPCError)
	if assert.True(ok) {
		assert.Equal(mcp.INVALID_PARAMS, resp.Error.Code)
	}
}

func TestListTools(t *testing.T) {
	assert := assert.New(t)

	req := JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(7)),
		Method:  mcp.MethodToolsList,
	}

	msg := ListToolsEndpoint(new(stubService))(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	result, ok := resp.Result.(*mcp.ListToolsResult)
	if assert.True(ok) && assert.Len(result.Tools, 2) {
		assert.Equal(ToolSemanticSearch, result.Tools[0].Name)
		assert.Equal(ToolTranslate, result.Tools[1].Name)
	}
}
