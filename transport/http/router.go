package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/semsearch"

	mcpE "github.com/flarexio/semsearch/mcp"
)

func AddRouters(r *gin.Engine, endpoints semsearch.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.GET("/search", SearchHandler(endpoints.Search))
		api.POST("/search", SearchHandler(endpoints.Search))
		api.GET("/stats", StatsHandler(endpoints.Stats))
		api.POST("/chat", ChatHandler(endpoints.Chat))
		api.GET("/sessions/:session_id", HistoryHandler(endpoints.History))
		api.DELETE("/sessions/:session_id", ClearSessionHandler(endpoints.ClearSession))
		api.POST("/translate", TranslateHandler(endpoints.Translate))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}

func AddMetricsRouter(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
