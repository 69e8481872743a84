package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/llm"
	"github.com/flarexio/semsearch/provider/openai"
	"github.com/flarexio/semsearch/vector"

	mcpE "github.com/flarexio/semsearch/mcp"
	httpT "github.com/flarexio/semsearch/transport/http"
	natsT "github.com/flarexio/semsearch/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "semsearch",
		Usage: "Semantic search over food product reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Path to the semsearch working directory",
				Sources: cli.EnvVars("SEMSEARCH_PATH"),
			},
		},
		Commands: []*cli.Command{
			prepareCommand(),
			embedCommand(),
			searchCommand(),
			chatCommand(),
			translateCommand(),
			serveCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func workingPath(cmd *cli.Command) (string, error) {
	path := cmd.String("path")
	if path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".flarex", "semsearch"), nil
}

func resolve(path string, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(path, name)
}

// setup installs the global logger and loads <path>/config.yaml. A missing
// config file yields the defaults.
func setup(cmd *cli.Command) (string, semsearch.Config, *zap.Logger, error) {
	var cfg semsearch.Config

	path, err := workingPath(cmd)
	if err != nil {
		return "", cfg, nil, err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return "", cfg, nil, err
	}

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", cfg, nil, err
	}

	if f != nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return "", cfg, nil, err
		}
	}

	cfg.ApplyDefaults()

	if cfg.Dataset.RawPath == "" {
		cfg.Dataset.RawPath = "Reviews.csv"
	}

	if cfg.Dataset.CleanPath == "" {
		cfg.Dataset.CleanPath = "clean_reviews.csv"
	}

	if cfg.Dataset.EmbeddedPath == "" {
		cfg.Dataset.EmbeddedPath = "embedded_reviews.csv"
	}

	cfg.Dataset.RawPath = resolve(path, cfg.Dataset.RawPath)
	cfg.Dataset.CleanPath = resolve(path, cfg.Dataset.CleanPath)
	cfg.Dataset.EmbeddedPath = resolve(path, cfg.Dataset.EmbeddedPath)

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	return path, cfg, log, nil
}

func newProviders(cfg semsearch.Config) (semsearch.Providers, error) {
	var providers semsearch.Providers

	embedder, err := openai.NewEmbedder(cfg.Embedding)
	if err != nil {
		return providers, err
	}

	providers.Embedder = embedder

	if cfg.Chat.Model != "" {
		chat, err := openai.NewCompleter(cfg.Chat.Config)
		if err != nil {
			return providers, err
		}

		providers.Chat = chat
	}

	if cfg.Translate.Model != "" {
		translator, err := openai.NewCompleter(cfg.Translate)
		if err != nil {
			return providers, err
		}

		providers.Translator = translator
	}

	return providers, nil
}

// newService builds the service over the embedded dataset.
func newService(cfg semsearch.Config, log *zap.Logger) (semsearch.Service, error) {
	reviews, err := semsearch.LoadEmbedded(cfg.Dataset.EmbeddedPath)
	if err != nil {
		return nil, err
	}

	return buildService(cfg, reviews, log)
}

// newModelService builds a service with an empty index, for commands
// that only talk to the models.
func newModelService(cfg semsearch.Config, log *zap.Logger) (semsearch.Service, error) {
	return buildService(cfg, nil, log)
}

func buildService(cfg semsearch.Config, reviews []dataset.Review, log *zap.Logger) (semsearch.Service, error) {
	providers, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := semsearch.NewService(cfg, reviews, providers)
	if err != nil {
		return nil, err
	}

	return semsearch.LoggingMiddleware(log)(svc), nil
}

// cacheEnabled follows vector.enabled unless --cache is given.
func cacheEnabled(cfg vector.Config, cmd *cli.Command) bool {
	if cmd.IsSet("cache") {
		return cmd.Bool("cache")
	}

	return cfg.Enabled
}

func embeddingModel(cfg llm.Config) string {
	if cfg.EmbeddingModel != "" {
		return cfg.EmbeddingModel
	}

	return openai.DefaultEmbeddingModel
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search, chat and translate APIs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reindex when the embedded dataset changes",
				Value: true,
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	path, cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	requestCount, requestLatency := semsearch.NewPrometheusMetrics()
	svc = semsearch.InstrumentingMiddleware(requestCount, requestLatency)(svc)

	endpoints := semsearch.MakeEndpoints(svc)

	// Add NATS Transport
	idBytes, err := os.ReadFile(filepath.Join(path, "id"))
	switch {
	case err == nil:
		edgeID := strings.TrimSpace(string(idBytes))

		opts := []nats.Option{
			nats.Name("semsearch Server - " + edgeID),
		}

		natsCreds := filepath.Join(path, "user.creds")
		if _, err := os.Stat(natsCreds); err == nil {
			opts = append(opts, nats.UserCredentials(natsCreds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "semsearch",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + edgeID + ".semsearch"

		root := srv.AddGroup(topic)
		natsT.AddEndpoints(root, endpoints)

		log.Info("nats transport enabled", zap.String("topic", topic))

	case errors.Is(err, os.ErrNotExist):
		log.Info("nats transport disabled, edge id not found")

	default:
		return err
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(svc))
		httpT.AddMetricsRouter(r)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	if cmd.Bool("watch") {
		go func() {
			err := semsearch.WatchDataset(ctx, svc, cfg.Dataset.EmbeddedPath, semsearch.DefaultDebounce)
			if err != nil {
				log.Error(err.Error())
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
