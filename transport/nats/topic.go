package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/semsearch"
)

func AddEndpoints(group micro.Group, endpoints semsearch.EndpointSet) {
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("stats", StatsHandler(endpoints.Stats))
	group.AddEndpoint("chat", ChatHandler(endpoints.Chat))
	group.AddEndpoint("history", HistoryHandler(endpoints.History))
	group.AddEndpoint("clear_session", ClearSessionHandler(endpoints.ClearSession))
	group.AddEndpoint("translate", TranslateHandler(endpoints.Translate))
}
