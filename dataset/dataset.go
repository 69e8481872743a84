// Package dataset prepares the review corpus and reads and writes it as CSV.
package dataset

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultSampleSize = 1000
	DefaultMaxChars   = 2000

	// DefaultMaxTokens is the context length of nomic-embed-text and
	// text-embedding-3-small.
	DefaultMaxTokens = 8191
)

// Tokenizer counts and trims text in model tokens.
type Tokenizer interface {
	Count(text string) int
	Truncate(text string, max int) string
}

// RawReview is one row of the source reviews export.
type RawReview struct {
	ID        string
	ProductID string
	UserID    string
	Score     int
	Summary   string
	Text      string
}

// Review is a cleaned review, optionally carrying its embedding.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Score     int       `json:"score"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type PrepareOptions struct {
	SampleSize int    `yaml:"sampleSize"` // 0 keeps every row
	MaxChars   int    `yaml:"maxChars"`   // 0 disables truncation
	MaxTokens  int    `yaml:"maxTokens"`  // needs a Tokenizer; 0 disables
	Encoding   string `yaml:"encoding"`

	Tokenizer Tokenizer `yaml:"-"`
}

func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		SampleSize: DefaultSampleSize,
		MaxChars:   DefaultMaxChars,
		MaxTokens:  DefaultMaxTokens,
	}
}

// Prepare deduplicates, filters and trims raw reviews into a sample
// ready for embedding. Row order is preserved.
func Prepare(raws []RawReview, opts PrepareOptions) []Review {
	type key struct{ product, user string }

	last := make(map[key]int, len(raws))
	for i, r := range raws {
		last[key{r.ProductID, r.UserID}] = i
	}

	reviews := make([]Review, 0, len(raws))
	for i, r := range raws {
		if last[key{r.ProductID, r.UserID}] != i {
			continue
		}

		summary := strings.TrimSpace(r.Summary)
		text := strings.TrimSpace(r.Text)
		if summary == "" || text == "" {
			continue
		}

		content := truncate(summary+". "+text, opts.MaxChars)
		if opts.Tokenizer != nil && opts.MaxTokens > 0 {
			content = opts.Tokenizer.Truncate(content, opts.MaxTokens)
		}

		reviews = append(reviews, Review{
			ID:        r.ID,
			ProductID: r.ProductID,
			Score:     r.Score,
			Content:   content,
		})

		if opts.SampleSize > 0 && len(reviews) == opts.SampleSize {
			break
		}
	}

	return reviews
}

// ScoreDistribution counts reviews per star rating.
func ScoreDistribution(reviews []Review) map[int]int {
	dist := make(map[int]int)
	for _, r := range reviews {
		dist[r.Score]++
	}
	return dist
}

type TokenReport struct {
	Total int `json:"total"`
	Max   int `json:"max"`
	Mean  int `json:"mean"`
}

// CountTokens measures the contents the embedding model will receive.
func CountTokens(reviews []Review, tok Tokenizer) TokenReport {
	var report TokenReport
	for _, r := range reviews {
		n := tok.Count(r.Content)

		report.Total += n
		report.Max = max(report.Max, n)
	}

	if len(reviews) > 0 {
		report.Mean = report.Total / len(reviews)
	}

	return report
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}

	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
