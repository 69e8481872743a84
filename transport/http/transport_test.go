package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/llm"

	mcpE "github.com/flarexio/semsearch/mcp"
)

type fixedEmbedder map[string][]float32

func (e fixedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = e.EmbedQuery(ctx, text)
	}
	return vectors, nil
}

func (e fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e[text]; ok {
		return v, nil
	}
	return []float32{0.1, 0.1, 0.1}, nil
}

type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return "echo: " + messages[len(messages)-1].Content, nil
}

type httpTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *httpTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	reviews := []dataset.Review{
		{ID: "1", ProductID: "B001", Score: 5, Content: "great chocolate taste", Embedding: []float32{1, 0, 0}},
		{ID: "3", ProductID: "B003", Score: 5, Content: "my dog loves this food", Embedding: []float32{0, 1, 0}},
		{ID: "4", ProductID: "B004", Score: 1, Content: "terrible waste of money", Embedding: []float32{0, 0, 1}},
	}

	svc, err := semsearch.NewService(semsearch.Config{}, reviews, semsearch.Providers{
		Embedder: fixedEmbedder{"chocolate": {1, 0, 0}},
		Chat:     echoCompleter{},
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	r := gin.New()
	AddRouters(r, semsearch.MakeEndpoints(svc))
	AddStreamableRouters(r, mcpE.MakeEndpoints(svc))

	suite.router = r
}

func (suite *httpTestSuite) do(method string, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTestSuite) TestSearchQuery() {
	w := suite.do(http.MethodGet, "/api/search?query=chocolate&k=1", "")
	suite.Equal(http.StatusOK, w.Code)

	var results []semsearch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(results, 1) {
		suite.Equal("1", results[0].ID)
	}
}

func (suite *httpTestSuite) TestSearchScore() {
	w := suite.do(http.MethodGet, "/api/search?query=chocolate&score=1", "")
	suite.Equal(http.StatusOK, w.Code)

	var results []semsearch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(results, 1) {
		suite.Equal("4", results[0].ID)
	}
}

func (suite *httpTestSuite) TestSearchVector() {
	w := suite.do(http.MethodPost, "/api/search", `{"vector": [0, 1, 0], "k": 1}`)
	suite.Equal(http.StatusOK, w.Code)

	var results []semsearch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(results, 1) {
		suite.Equal("3", results[0].ID)
	}
}

func (suite *httpTestSuite) TestSearchEmptyQuery() {
	w := suite.do(http.MethodGet, "/api/search", "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTestSuite) TestSearchDimensionMismatch() {
	w := suite.do(http.MethodPost, "/api/search", `{"vector": [0, 1]}`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTestSuite) TestStats() {
	w := suite.do(http.MethodGet, "/api/stats", "")
	suite.Equal(http.StatusOK, w.Code)

	var stats semsearch.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(3, stats.Records)
	suite.Equal(3, stats.Dimension)
	suite.Equal(2, stats.Scores[5])
}

func (suite *httpTestSuite) TestChatSession() {
	w := suite.do(http.MethodPost, "/api/chat", `{"session_id": "abc", "input": "hello"}`)
	suite.Equal(http.StatusOK, w.Code)

	var resp semsearch.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("abc", resp.SessionID)
	suite.Equal("echo: hello", resp.Reply)

	w = suite.do(http.MethodGet, "/api/sessions/abc", "")
	suite.Equal(http.StatusOK, w.Code)

	var messages []llm.Message
	if err := json.Unmarshal(w.Body.Bytes(), &messages); err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(messages, 2) {
		suite.Equal(llm.RoleUser, messages[0].Role)
		suite.Equal(llm.RoleAssistant, messages[1].Role)
	}

	w = suite.do(http.MethodDelete, "/api/sessions/abc", "")
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodDelete, "/api/sessions/abc", "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *httpTestSuite) TestTranslate() {
	w := suite.do(http.MethodPost, "/api/translate", `{"text": "你好", "target_language": "English"}`)
	suite.Equal(http.StatusOK, w.Code)

	var resp semsearch.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Contains(resp.Translation, "你好")

	w = suite.do(http.MethodPost, "/api/translate", `{"text": "你好"}`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTestSuite) TestMCPListTools() {
	w := suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(resp.Result.Tools, 2) {
		suite.Equal(mcpE.ToolSemanticSearch, resp.Result.Tools[0].Name)
	}
}

func (suite *httpTestSuite) TestMCPMethodNotFound() {
	w := suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 1, "method": "resources/list"}`)
	suite.Equal(http.StatusNotFound, w.Code)
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(httpTestSuite))
}
