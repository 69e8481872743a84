package semsearch

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/llm"
)

// NewPrometheusMetrics registers the service metrics with the default
// Prometheus registry. It must be called once per process.
func NewPrometheusMetrics() (metrics.Counter, metrics.Histogram) {
	labels := []string{"method", "error"}

	requestCount := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "semsearch",
		Subsystem: "service",
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, labels)

	requestLatency := kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "semsearch",
		Subsystem: "service",
		Name:      "request_latency_seconds",
		Help:      "Total duration of requests in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, labels)

	return requestCount, requestLatency
}

func InstrumentingMiddleware(requestCount metrics.Counter, requestLatency metrics.Histogram) ServiceMiddleware {
	return func(next Service) Service {
		return &instrumentingMiddleware{
			requestCount:   requestCount,
			requestLatency: requestLatency,
			next:           next,
		}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw *instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	lvs := []string{"method", method, "error", strconv.FormatBool(err != nil)}
	mw.requestCount.With(lvs...).Add(1)
	mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

func (mw *instrumentingMiddleware) Search(ctx context.Context, query string, k int, filter map[string]string) (results []Result, err error) {
	defer func(begin time.Time) {
		mw.observe("search", begin, err)
	}(time.Now())

	return mw.next.Search(ctx, query, k, filter)
}

func (mw *instrumentingMiddleware) SearchVector(ctx context.Context, vector []float32, k int, filter map[string]string) (results []Result, err error) {
	defer func(begin time.Time) {
		mw.observe("search_vector", begin, err)
	}(time.Now())

	return mw.next.SearchVector(ctx, vector, k, filter)
}

func (mw *instrumentingMiddleware) Reindex(ctx context.Context, reviews []dataset.Review) (err error) {
	defer func(begin time.Time) {
		mw.observe("reindex", begin, err)
	}(time.Now())

	return mw.next.Reindex(ctx, reviews)
}

func (mw *instrumentingMiddleware) Stats(ctx context.Context) (stats Stats, err error) {
	defer func(begin time.Time) {
		mw.observe("stats", begin, err)
	}(time.Now())

	return mw.next.Stats(ctx)
}

func (mw *instrumentingMiddleware) Chat(ctx context.Context, sessionID string, input string) (reply string, err error) {
	defer func(begin time.Time) {
		mw.observe("chat", begin, err)
	}(time.Now())

	return mw.next.Chat(ctx, sessionID, input)
}

func (mw *instrumentingMiddleware) History(ctx context.Context, sessionID string) (messages []llm.Message, err error) {
	defer func(begin time.Time) {
		mw.observe("history", begin, err)
	}(time.Now())

	return mw.next.History(ctx, sessionID)
}

func (mw *instrumentingMiddleware) ClearSession(ctx context.Context, sessionID string) (err error) {
	defer func(begin time.Time) {
		mw.observe("clear_session", begin, err)
	}(time.Now())

	return mw.next.ClearSession(ctx, sessionID)
}

func (mw *instrumentingMiddleware) Translate(ctx context.Context, text string, targetLanguage string) (result string, err error) {
	defer func(begin time.Time) {
		mw.observe("translate", begin, err)
	}(time.Now())

	return mw.next.Translate(ctx, text, targetLanguage)
}
