package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	bleve "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/arabic"
	"github.com/blevesearch/snowballstem/danish"
	"github.com/blevesearch/snowballstem/dutch"
	"github.com/blevesearch/snowballstem/finnish"
	"github.com/blevesearch/snowballstem/german"
	"github.com/blevesearch/snowballstem/irish"
	"github.com/blevesearch/snowballstem/italian"
	"github.com/blevesearch/snowballstem/porter"
	"github.com/blevesearch/snowballstem/portuguese"
	"github.com/blevesearch/snowballstem/romanian"
	"github.com/blevesearch/snowballstem/tamil"
	"github.com/blevesearch/snowballstem/turkish"
	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Built-in filter kinds.
const (
	FilterAlphaNumOnly = "alpha_num_only"
	FilterASCIIFolding = "ascii_folding"
	FilterLowerCase    = "lower_case"
	FilterRemoveLong   = "remove_long"
	FilterStemming     = "stemming"
	FilterStopWord     = "stop_word"
)

func builtinFilters() map[string]FilterFactory {
	return map[string]FilterFactory{
		FilterAlphaNumOnly: FilterFactoryFunc(newAlphaNumOnlyFilter),
		FilterASCIIFolding: FilterFactoryFunc(newASCIIFoldingFilter),
		FilterLowerCase:    FilterFactoryFunc(newLowerCaseFilter),
		FilterRemoveLong:   FilterFactoryFunc(newRemoveLongFilter),
		FilterStemming:     FilterFactoryFunc(newStemmingFilter),
		FilterStopWord:     FilterFactoryFunc(newStopWordFilter),
	}
}

// bleveFilter adapts a bleve token filter. Each call builds a fresh bleve
// stream, so filters that edit tokens in place never touch the caller's
// slice. Positions travel with the token pointers bleve hands back.
type bleveFilter struct {
	filter bleve.TokenFilter
}

func (f bleveFilter) Filter(tokens []Token) []Token {
	stream := make(bleve.TokenStream, len(tokens))
	source := make(map[*bleve.Token]int, len(tokens))
	for i, t := range tokens {
		bt := &bleve.Token{
			Term:  []byte(t.Term),
			Start: t.StartByte,
			End:   t.EndByte,
		}
		stream[i] = bt
		source[bt] = i
	}

	out := f.filter.Filter(stream)
	if len(out) == 0 {
		return nil
	}
	result := make([]Token, 0, len(out))
	position := tokens[0].Position
	for _, bt := range out {
		if i, ok := source[bt]; ok {
			position = tokens[i].Position
		}
		result = append(result, Token{
			Term:      string(bt.Term),
			Position:  position,
			StartByte: bt.Start,
			EndByte:   bt.End,
		})
	}
	return result
}

func newLowerCaseFilter(args Args) (Filter, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return bleveFilter{filter: lowercase.NewLowerCaseFilter()}, nil
}

type removeLongArgs struct {
	LengthLimit *int `json:"length_limit"`
}

// newRemoveLongFilter drops tokens longer than length_limit runes.
func newRemoveLongFilter(args Args) (Filter, error) {
	var a removeLongArgs
	if len(args) == 0 {
		return nil, missingArg("length_limit")
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.LengthLimit == nil {
		return nil, missingArg("length_limit")
	}
	if *a.LengthLimit < 1 {
		return nil, fmt.Errorf("%w: length_limit must be positive, got %d", ErrInvalidArgument, *a.LengthLimit)
	}
	return bleveFilter{filter: length.NewLengthFilter(0, *a.LengthLimit)}, nil
}

type stopWordArgs struct {
	Words *[]string `json:"words"`
}

// newStopWordFilter drops tokens whose term exactly matches a stop word.
// Matching is case-sensitive; put lower_case first to match regardless of
// case.
func newStopWordFilter(args Args) (Filter, error) {
	var a stopWordArgs
	if len(args) == 0 {
		return nil, missingArg("words")
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Words == nil {
		return nil, missingArg("words")
	}
	words := bleve.NewTokenMap()
	for _, w := range *a.Words {
		words.AddToken(w)
	}
	return bleveFilter{filter: stop.NewStopTokensFilter(words)}, nil
}

type stemmingArgs struct {
	StemmerAlgorithm *string `json:"stemmer_algorithm"`
}

// stemmer reduces one lower-cased term to its stem.
type stemmer func(term string) string

// kljensenLanguages are stemmed by kljensen/snowball; every other language
// in stemmers runs the blevesearch/snowballstem port of the same algorithm.
var kljensenLanguages = []string{"english", "french", "hungarian", "norwegian", "russian", "spanish", "swedish"}

var stemmers = func() map[string]stemmer {
	m := map[string]stemmer{
		"arabic":     snowballstemFunc(arabic.Stem),
		"danish":     snowballstemFunc(danish.Stem),
		"dutch":      snowballstemFunc(dutch.Stem),
		"finnish":    snowballstemFunc(finnish.Stem),
		"german":     snowballstemFunc(german.Stem),
		"irish":      snowballstemFunc(irish.Stem),
		"italian":    snowballstemFunc(italian.Stem),
		"porter":     snowballstemFunc(porter.Stem),
		"portuguese": snowballstemFunc(portuguese.Stem),
		"romanian":   snowballstemFunc(romanian.Stem),
		"tamil":      snowballstemFunc(tamil.Stem),
		"turkish":    snowballstemFunc(turkish.Stem),
	}
	for _, lang := range kljensenLanguages {
		lang := lang
		m[lang] = func(term string) string {
			stemmed, err := snowball.Stem(term, lang, true)
			if err != nil {
				return term
			}
			return stemmed
		}
	}
	return m
}()

func snowballstemFunc(stem func(*snowballstem.Env) bool) stemmer {
	return func(term string) string {
		env := snowballstem.NewEnv(term)
		stem(env)
		return env.Current()
	}
}

// StemmerLanguages returns the accepted stemmer_algorithm values, sorted.
func StemmerLanguages() []string {
	langs := make([]string, 0, len(stemmers))
	for lang := range stemmers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// stemmingFilter lower-cases each term and reduces it to its snowball stem.
// Terms are lower-cased for every language, so a stemming filter also acts
// as a lower_case filter.
type stemmingFilter struct {
	stem stemmer
}

func newStemmingFilter(args Args) (Filter, error) {
	var a stemmingArgs
	if len(args) == 0 {
		return nil, missingArg("stemmer_algorithm")
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.StemmerAlgorithm == nil {
		return nil, missingArg("stemmer_algorithm")
	}
	language := strings.ToLower(strings.TrimSpace(*a.StemmerAlgorithm))
	stem, ok := stemmers[language]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported stemmer_algorithm %q", ErrInvalidArgument, *a.StemmerAlgorithm)
	}
	return stemmingFilter{stem: stem}, nil
}

func (f stemmingFilter) Filter(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		if stemmed := f.stem(strings.ToLower(t.Term)); stemmed != "" {
			t.Term = stemmed
		}
		out[i] = t
	}
	return out
}

// foldReplacer covers letters that have no canonical decomposition.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "TH",
)

// asciiFoldingFilter strips diacritics and maps the remaining Latin letters
// to ASCII. Tokens left empty by folding are dropped.
type asciiFoldingFilter struct{}

func newASCIIFoldingFilter(args Args) (Filter, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return asciiFoldingFilter{}, nil
}

func (asciiFoldingFilter) Filter(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		t.Term = foldASCII(t.Term)
		if t.Term == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func foldASCII(s string) string {
	if isASCII(s) {
		return s
	}
	// Transformers carry state, so build one per call.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return foldReplacer.Replace(folded)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// alphaNumOnlyFilter keeps tokens made only of ASCII letters and digits.
type alphaNumOnlyFilter struct{}

func newAlphaNumOnlyFilter(args Args) (Filter, error) {
	if err := noArgs(args); err != nil {
		return nil, err
	}
	return alphaNumOnlyFilter{}, nil
}

func (alphaNumOnlyFilter) Filter(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if isASCIIAlphaNum(t.Term) {
			out = append(out, t)
		}
	}
	return out
}

func isASCIIAlphaNum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
