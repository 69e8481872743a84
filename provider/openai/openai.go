// Package openai connects the llm interfaces to OpenAI-compatible HTTP
// endpoints (OpenAI, DeepSeek, Ollama) through langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/flarexio/semsearch/llm"
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEmptyCompletion = errors.New("empty completion")
)

const (
	DefaultBaseURL        = "http://localhost:11434/v1"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultBatchSize      = 16

	// Ollama does not check the token, but langchaingo requires one.
	placeholderToken = "ollama"
)

func clientOptions(cfg llm.Config) []openai.Option {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	token := cfg.APIKey
	if token == "" {
		token = placeholderToken
	}

	opts := []openai.Option{
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
	}

	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}

	return opts
}

// NewEmbedder returns a batching embedder backed by the configured
// embedding model.
func NewEmbedder(cfg llm.Config) (llm.Embedder, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	opts := clientOptions(cfg)
	opts = append(opts, openai.WithEmbeddingModel(model))

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return embedder, nil
}

// NewCompleter returns a chat completer for the configured model.
func NewCompleter(cfg llm.Config) (llm.Completer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: chat model required", ErrInvalidConfig)
	}

	client, err := openai.New(clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	var opts []llms.CallOption
	if cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}

	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}

	return WrapModel(client, opts...), nil
}

// WrapModel adapts any langchaingo model to llm.Completer.
func WrapModel(model llms.Model, opts ...llms.CallOption) llm.Completer {
	return &completer{
		model: model,
		opts:  opts,
	}
}

type completer struct {
	model llms.Model
	opts  []llms.CallOption
}

func (c *completer) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	content, err := toMessageContent(messages)
	if err != nil {
		return "", err
	}

	resp, err := c.model.GenerateContent(ctx, content, c.opts...)
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Content, nil
}

func toMessageContent(messages []llm.Message) ([]llms.MessageContent, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleUser:
			role = llms.ChatMessageTypeHuman
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}

		content[i] = llms.TextParts(role, msg.Content)
	}

	return content, nil
}
