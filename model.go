package semsearch

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/semsearch/dataset"
	"github.com/flarexio/semsearch/index"
	"github.com/flarexio/semsearch/llm"
	"github.com/flarexio/semsearch/vector"
)

var (
	ErrEmptyQuery          = errors.New("empty query")
	ErrEmptyText           = errors.New("empty text")
	ErrInvalidLanguage     = errors.New("invalid target language")
	ErrInvalidSessionID    = errors.New("invalid session ID")
	ErrSessionNotFound     = errors.New("session not found")
	ErrEmbedderNotSet      = errors.New("embedder not set")
	ErrCompleterNotSet     = errors.New("completer not set")
	ErrEmbeddingCountFault = errors.New("embedding count does not match input count")
)

const (
	MetadataScore     = "score"
	MetadataProductID = "product_id"
)

const (
	DefaultK             = 5
	DefaultHistoryWindow = 10
	DefaultSystemPrompt  = "You are a helpful assistant that answers questions about food product reviews. Keep answers concise."
)

type Config struct {
	Dataset        DatasetConfig `yaml:"dataset"`
	Embedding      llm.Config    `yaml:"embedding"`
	Chat           ChatConfig    `yaml:"chat"`
	Translate      llm.Config    `yaml:"translate"`
	Search         SearchConfig  `yaml:"search"`
	RequestTimeout Duration      `yaml:"requestTimeout"`
	Vector         vector.Config `yaml:"vector"`
}

// ApplyDefaults fills in zero values.
func (cfg *Config) ApplyDefaults() {
	if cfg.Search.DefaultK <= 0 {
		cfg.Search.DefaultK = DefaultK
	}

	if cfg.Chat.HistoryWindow == 0 {
		cfg.Chat.HistoryWindow = DefaultHistoryWindow
	}

	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}

	if cfg.Dataset.Prepare == (dataset.PrepareOptions{}) {
		cfg.Dataset.Prepare = dataset.DefaultPrepareOptions()
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "embeddings"
	}
}

type DatasetConfig struct {
	RawPath      string                 `yaml:"rawPath"`
	CleanPath    string                 `yaml:"cleanPath"`
	EmbeddedPath string                 `yaml:"embeddedPath"`
	Prepare      dataset.PrepareOptions `yaml:"prepare"`
}

type ChatConfig struct {
	llm.Config    `yaml:",inline"`
	SystemPrompt  string `yaml:"systemPrompt"`
	HistoryWindow int    `yaml:"historyWindow"`
}

type SearchConfig struct {
	DefaultK int `yaml:"defaultK"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Result struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"product_id"`
	Score      int     `json:"score"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

type Stats struct {
	Records   int         `json:"records"`
	Dimension int         `json:"dimension"`
	Scores    map[int]int `json:"scores"`
}

func ReviewToRecord(review dataset.Review) index.Record {
	return index.Record{
		ID:      review.ID,
		Content: review.Content,
		Metadata: map[string]string{
			MetadataProductID: review.ProductID,
			MetadataScore:     strconv.Itoa(review.Score),
		},
		Vector: review.Embedding,
	}
}

func RecordToResult(result index.Result) Result {
	score, _ := strconv.Atoi(result.Record.Metadata[MetadataScore])

	return Result{
		ID:         result.Record.ID,
		ProductID:  result.Record.Metadata[MetadataProductID],
		Score:      score,
		Content:    result.Record.Content,
		Similarity: result.Score,
	}
}

// ScoreFilter restricts a search to reviews with the given star rating.
func ScoreFilter(score int) map[string]string {
	return map[string]string{
		MetadataScore: strconv.Itoa(score),
	}
}

// Stars renders a 1-5 star rating.
func Stars(score int) string {
	if score < 0 || score > 5 {
		return strconv.Itoa(score)
	}

	return strings.Repeat("★", score) + strings.Repeat("☆", 5-score)
}

var scorePrefix = regexp.MustCompile(`^\[(\d)(?:星|\*)\]\s*`)

// ParseQuery strips an optional "[N星]" or "[N*]" prefix and turns it
// into a score filter. Ratings outside 1-5 still filter, and so match
// nothing.
func ParseQuery(input string) (string, map[string]string) {
	match := scorePrefix.FindStringSubmatchIndex(input)
	if match == nil {
		return input, nil
	}

	score, _ := strconv.Atoi(input[match[2]:match[3]])
	return input[match[1]:], ScoreFilter(score)
}

func toFilter(filter map[string]string) index.Filter {
	if len(filter) == 0 {
		return nil
	}

	filters := make([]index.Filter, 0, len(filter))
	for key, value := range filter {
		filters = append(filters, index.Where(key, value))
	}

	return index.And(filters...)
}
