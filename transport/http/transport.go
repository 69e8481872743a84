package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/index"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, semsearch.ErrEmptyQuery),
		errors.Is(err, semsearch.ErrEmptyText),
		errors.Is(err, semsearch.ErrInvalidLanguage),
		errors.Is(err, semsearch.ErrInvalidSessionID),
		errors.Is(err, index.ErrValidation),
		errors.Is(err, index.ErrDimensionMismatch):
		return http.StatusBadRequest

	case errors.Is(err, semsearch.ErrSessionNotFound):
		return http.StatusNotFound

	default:
		return http.StatusExpectationFailed
	}
}

func abort(c *gin.Context, code int, err error) {
	c.String(code, err.Error())
	c.Error(err)
	c.Abort()
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req semsearch.SearchRequest

		var err error
		if c.Request.Method == http.MethodGet {
			err = c.ShouldBindQuery(&req)
		} else {
			err = c.ShouldBindJSON(&req)
		}

		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func StatsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req semsearch.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func HistoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if sessionID == "" {
			abort(c, http.StatusBadRequest, semsearch.ErrInvalidSessionID)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, sessionID)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ClearSessionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if sessionID == "" {
			abort(c, http.StatusBadRequest, semsearch.ErrInvalidSessionID)
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, sessionID)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}

func TranslateHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req semsearch.TranslateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
