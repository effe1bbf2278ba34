package analysis

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	bleve "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/character"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
)

// Built-in tokenizer kinds.
const (
	TokenizerFacet  = "facet"
	TokenizerNgram  = "ngram"
	TokenizerRaw    = "raw"
	TokenizerSimple = "simple"
)

// Ngram defaults.
const (
	DefaultMinGram = 1
	DefaultMaxGram = 2
)

func builtinTokenizers() map[string]TokenizerFactory {
	return map[string]TokenizerFactory{
		TokenizerFacet:  TokenizerFactoryFunc(newFacetTokenizer),
		TokenizerNgram:  TokenizerFactoryFunc(newNgramTokenizer),
		TokenizerRaw:    TokenizerFactoryFunc(newRawTokenizer),
		TokenizerSimple: TokenizerFactoryFunc(newSimpleTokenizer),
	}
}

// bleveTokenizer adapts a bleve tokenizer, numbering positions from 0.
type bleveTokenizer struct {
	tokenizer bleve.Tokenizer
}

func (t bleveTokenizer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	stream := t.tokenizer.Tokenize([]byte(text))
	if len(stream) == 0 {
		return nil
	}
	tokens := make([]Token, len(stream))
	for i, bt := range stream {
		tokens[i] = Token{
			Term:      string(bt.Term),
			Position:  i,
			StartByte: bt.Start,
			EndByte:   bt.End,
		}
	}
	return tokens
}

// newSimpleTokenizer splits on every rune that is not a letter or a number.
func newSimpleTokenizer(args Args) (Tokenizer, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return bleveTokenizer{tokenizer: character.NewCharacterTokenizer(letterOrNumber)}, nil
}

func letterOrNumber(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// newRawTokenizer emits the whole input as one token.
func newRawTokenizer(args Args) (Tokenizer, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return bleveTokenizer{tokenizer: single.NewSingleTokenTokenizer()}, nil
}

type ngramArgs struct {
	MinGram    *int `json:"min_gram"`
	MaxGram    *int `json:"max_gram"`
	PrefixOnly bool `json:"prefix_only"`
}

// ngramTokenizer emits character n-grams of the whole input. Grams come out
// grouped by start rune, shortest first.
type ngramTokenizer struct {
	whole      *single.SingleTokenTokenizer
	grams      bleve.TokenFilter
	prefixOnly bool
}

func newNgramTokenizer(args Args) (Tokenizer, error) {
	var a ngramArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	minGram, maxGram := DefaultMinGram, DefaultMaxGram
	if a.MinGram != nil {
		minGram = *a.MinGram
	}
	if a.MaxGram != nil {
		maxGram = *a.MaxGram
	}
	if minGram < 1 {
		return nil, fmt.Errorf("%w: min_gram must be at least 1, got %d", ErrInvalidArgument, minGram)
	}
	if maxGram < minGram {
		return nil, fmt.Errorf("%w: max_gram (%d) must not be less than min_gram (%d)", ErrInvalidArgument, maxGram, minGram)
	}

	t := &ngramTokenizer{
		whole:      single.NewSingleTokenTokenizer(),
		prefixOnly: a.PrefixOnly,
	}
	if a.PrefixOnly {
		t.grams = edgengram.NewEdgeNgramFilter(edgengram.FRONT, minGram, maxGram)
	} else {
		t.grams = ngram.NewNgramFilter(minGram, maxGram)
	}
	return t, nil
}

func (t *ngramTokenizer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	stream := t.grams.Filter(t.whole.Tokenize([]byte(text)))
	if len(stream) == 0 {
		return nil
	}

	// bleve reports the span of the whole input for every gram; recover each
	// gram's own span. A gram no longer than its predecessor starts one rune
	// further on.
	tokens := make([]Token, 0, len(stream))
	start, prevRunes := 0, 0
	for i, bt := range stream {
		n := utf8.RuneCount(bt.Term)
		if !t.prefixOnly && i > 0 && n <= prevRunes {
			_, size := utf8.DecodeRuneInString(text[start:])
			start += size
		}
		prevRunes = n
		tokens = append(tokens, Token{
			Term:      string(bt.Term),
			Position:  i,
			StartByte: start,
			EndByte:   advanceRunes(text, start, n),
		})
	}
	return tokens
}

func advanceRunes(text string, from, n int) int {
	end := from
	for ; n > 0 && end < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return end
}

// facetTokenizer emits every prefix of a slash separated path:
// "/a/b/c" yields "/a", "/a/b" and "/a/b/c". A backslash escapes the next
// byte, so "\/" does not split.
type facetTokenizer struct{}

func newFacetTokenizer(args Args) (Tokenizer, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return facetTokenizer{}, nil
}

func (facetTokenizer) Tokenize(text string) []Token {
	var tokens []Token
	segStart := 0
	emit := func(end int) {
		if end > segStart {
			tokens = append(tokens, Token{
				Term:      text[:end],
				Position:  len(tokens),
				StartByte: 0,
				EndByte:   end,
			})
		}
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '/':
			emit(i)
			segStart = i + 1
		}
	}
	emit(len(text))
	return tokens
}
