package chatgpt

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text to model tokens and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenizer loads a BPE encoding such as cl100k_base.
func NewTiktokenizer(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &tiktokenizer{enc: enc}, nil
}

func (t *tiktokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// TrimToBudget keeps the leading maxTokens tokens of text. A nil tokenizer
// or non-positive budget returns text unchanged.
func TrimToBudget(tok Tokenizer, text string, maxTokens int) (string, int, bool) {
	if tok == nil || maxTokens <= 0 {
		return text, 0, false
	}
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text, len(tokens), false
	}
	return tok.Decode(tokens[:maxTokens]), maxTokens, true
}
