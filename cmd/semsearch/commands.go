package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/semsearch"
	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/persistence/chromem"
	"github.com/flarexio/semsearch/provider/openai"
	"github.com/flarexio/semsearch/tokenizer"
)

func prepareCommand() *cli.Command {
	return &cli.Command{
		Name:  "prepare",
		Usage: "Clean, deduplicate and sample the raw review dataset",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "sample",
				Usage: "Number of reviews to keep, 0 keeps every review",
				Value: -1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			opts := cfg.Dataset.Prepare
			if sample := cmd.Int("sample"); sample >= 0 {
				opts.SampleSize = int(sample)
			}

			// Without an encoding the reviews are still trimmed by characters.
			tok, err := tokenizer.New(opts.Encoding)
			if err != nil {
				log.Warn("tokenizer unavailable, skipping token limit", zap.Error(err))
			} else {
				opts.Tokenizer = tok
			}

			in, err := os.Open(cfg.Dataset.RawPath)
			if err != nil {
				return err
			}
			defer in.Close()

			raws, err := dataset.ReadRaw(in)
			if err != nil {
				return err
			}

			reviews := dataset.Prepare(raws, opts)

			out, err := os.Create(cfg.Dataset.CleanPath)
			if err != nil {
				return err
			}
			defer out.Close()

			if err := dataset.WriteClean(out, reviews); err != nil {
				return err
			}

			if opts.Tokenizer != nil {
				report := dataset.CountTokens(reviews, opts.Tokenizer)
				log.Info("dataset tokens",
					zap.String("encoding", tok.Name()),
					zap.Int("total", report.Total),
					zap.Int("max", report.Max),
					zap.Int("mean", report.Mean),
				)
			}

			log.Info("dataset prepared",
				zap.String("path", cfg.Dataset.CleanPath),
				zap.Int("raw", len(raws)),
				zap.Int("reviews", len(reviews)),
			)

			return nil
		},
	}
}

func embedCommand() *cli.Command {
	return &cli.Command{
		Name:  "embed",
		Usage: "Embed the cleaned reviews",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "cache",
				Usage: "Reuse embeddings stored in the vector database (default: vector.enabled)",
			},
			&cli.BoolFlag{
				Name:  "reset-cache",
				Usage: "Drop every cached embedding before embedding",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			in, err := os.Open(cfg.Dataset.CleanPath)
			if err != nil {
				return err
			}
			defer in.Close()

			reviews, err := dataset.ReadClean(in)
			if err != nil {
				return err
			}

			embedder, err := openai.NewEmbedder(cfg.Embedding)
			if err != nil {
				return err
			}

			var cache *semsearch.EmbeddingCache
			if cacheEnabled(cfg.Vector, cmd) {
				cfg.Vector.Persistent = true

				db, err := chromem.NewChromemVectorDB(cfg.Vector)
				if err != nil {
					return err
				}

				if cmd.Bool("reset-cache") {
					if err := db.DeleteCollection(cfg.Vector.Collection); err != nil {
						return err
					}

					log.Info("embedding cache reset", zap.String("collection", cfg.Vector.Collection))
				}

				collection, err := db.Collection(cfg.Vector.Collection)
				if err != nil {
					return err
				}

				cache = semsearch.NewEmbeddingCache(collection, embeddingModel(cfg.Embedding))
			}

			embedded, err := semsearch.EmbedReviews(ctx, embedder, cache, reviews, cfg.Embedding.BatchSize)
			if err != nil {
				return err
			}

			out, err := os.Create(cfg.Dataset.EmbeddedPath)
			if err != nil {
				return err
			}
			defer out.Close()

			if err := dataset.WriteEmbedded(out, embedded); err != nil {
				return err
			}

			log.Info("dataset embedded",
				zap.String("path", cfg.Dataset.EmbeddedPath),
				zap.Int("reviews", len(embedded)),
			)

			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search reviews; without a query, start an interactive session",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "k",
				Aliases: []string{"n"},
				Usage:   "Number of results",
				Value:   semsearch.DefaultK,
			},
			&cli.IntFlag{
				Name:  "score",
				Usage: "Only return reviews with this star rating",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			svc, err := newService(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			k := int(cmd.Int("k"))

			query := strings.Join(cmd.Args().Slice(), " ")
			if query != "" {
				var filter map[string]string
				if score := int(cmd.Int("score")); score > 0 {
					filter = semsearch.ScoreFilter(score)
				}

				return search(ctx, svc, os.Stdout, query, k, filter)
			}

			fmt.Println("Enter a query, optionally prefixed with [N星] to filter by rating. Type exit to quit.")

			return repl(os.Stdin, os.Stdout, "query> ", func(line string) error {
				query, filter := semsearch.ParseQuery(line)
				return search(ctx, svc, os.Stdout, query, k, filter)
			})
		},
	}
}

func search(ctx context.Context, svc semsearch.Service, w io.Writer, query string, k int, filter map[string]string) error {
	results, err := svc.Search(ctx, query, k, filter)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "no matching reviews")
		return nil
	}

	for i, result := range results {
		fmt.Fprintf(w, "%d. %s (%.4f) [%s]\n   %s\n",
			i+1,
			semsearch.Stars(result.Score),
			result.Similarity,
			result.ProductID,
			result.Content,
		)
	}

	return nil
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the configured model; /clear forgets the conversation",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			svc, err := newModelService(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			sessionID := uuid.NewString()

			return repl(os.Stdin, os.Stdout, "you> ", func(line string) error {
				if line == "/clear" {
					err := svc.ClearSession(ctx, sessionID)
					if err != nil && !errors.Is(err, semsearch.ErrSessionNotFound) {
						return err
					}

					sessionID = uuid.NewString()
					fmt.Println("conversation cleared")
					return nil
				}

				reply, err := svc.Chat(ctx, sessionID, line)
				if err != nil {
					return err
				}

				fmt.Printf("bot> %s\n", reply)
				return nil
			})
		},
	}
}

func translateCommand() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "Translate text into a target language",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "to",
				Usage: "Target language",
				Value: "English",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			svc, err := newModelService(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			text := strings.Join(cmd.Args().Slice(), " ")
			translation, err := svc.Translate(ctx, text, cmd.String("to"))
			if err != nil {
				return err
			}

			fmt.Println(translation)
			return nil
		},
	}
}

// repl feeds each non-empty input line to fn until EOF or exit. Errors
// from fn are printed and the loop goes on.
func repl(r io.Reader, w io.Writer, prompt string, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)

	for {
		fmt.Fprint(w, prompt)

		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := fn(line); err != nil {
			fmt.Fprintf(w, "error: %s\n", err.Error())
		}
	}
}
