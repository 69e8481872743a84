// Package tokenizer counts and trims text in model tokens using the
// OpenAI BPE encodings.
package tokenizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/flarexio/semsearch/llm"
)

const DefaultEncoding = "cl100k_base"

// Chat requests pay a fixed framing cost per message, plus the
// priming of the assistant reply.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// allowAll encodes special tokens found in the text as plain tokens
// instead of rejecting them.
var allowAll = []string{"all"}

type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// New loads the named encoding, DefaultEncoding when name is empty.
// The BPE ranks are fetched and cached on first use.
func New(name string) (*Tiktoken, error) {
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}

	return &Tiktoken{name, enc}, nil
}

// ForModel loads the encoding of an OpenAI model. Unknown models, such
// as DeepSeek or Ollama ones, fall back to DefaultEncoding and the
// counts are estimates.
func ForModel(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return New(DefaultEncoding)
	}

	return &Tiktoken{model, enc}, nil
}

func (t *Tiktoken) Name() string {
	return t.name
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, allowAll, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *Tiktoken) Count(text string) int {
	return len(t.Encode(text))
}

// Truncate keeps the first max tokens of text. A multi-byte character
// split at the cut is dropped.
func (t *Tiktoken) Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}

	tokens := t.Encode(text)
	if len(tokens) <= max {
		return text
	}

	return strings.ToValidUTF8(t.Decode(tokens[:max]), "")
}

// CountMessages estimates the prompt tokens of a chat request.
func (t *Tiktoken) CountMessages(messages []llm.Message) int {
	total := tokensPerReply
	for _, msg := range messages {
		total += tokensPerMessage
		total += t.Count(string(msg.Role))
		total += t.Count(msg.Content)
	}

	return total
}
