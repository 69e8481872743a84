package llm

import "context"

type Config struct {
	BaseURL        string  `yaml:"baseURL"`
	APIKey         string  `yaml:"apiKey"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	BatchSize      int     `yaml:"batchSize"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"maxTokens"`
}

// Embedder turns text into vectors. The method set matches
// langchaingo's embeddings.Embedder.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Completer produces an assistant reply for an ordered conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{RoleSystem, content}
}

func UserMessage(content string) Message {
	return Message{RoleUser, content}
}

func AssistantMessage(content string) Message {
	return Message{RoleAssistant, content}
}
