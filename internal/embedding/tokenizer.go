package embedding

import "strings"

// CLIP text-encoder special tokens.
const (
	clipStartToken = 49406
	clipEndToken   = 49407
	clipVocabSize  = 49408
	clipMaxTokens  = 77
)

// Tokenizer produces token IDs for the CLIP text encoder.
type Tokenizer interface {
	Tokenize(text string) []int64
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It is
// not the BPE vocabulary CLIP was trained with, so retrieval quality degrades
// gracefully; exporters that bundle a proper tokenizer in the ONNX graph can
// bypass it entirely.
type SimpleTokenizer struct{}

// Tokenize lowercases and splits text into words and produces a padded
// sequence of clipMaxTokens token IDs.
func (t *SimpleTokenizer) Tokenize(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))
	ids := make([]int64, clipMaxTokens)
	ids[0] = clipStartToken
	pos := 1
	for _, word := range words {
		if pos >= clipMaxTokens-1 {
			break
		}
		ids[pos] = int64(HashString(word) % (clipVocabSize - 3))
		pos++
	}
	ids[pos] = clipEndToken
	return ids
}
