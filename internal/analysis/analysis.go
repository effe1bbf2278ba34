package analysis

// Token represents a single token produced by an analyzer.
// StartByte and EndByte always refer to the original input text, no matter
// how many filters rewrote Term.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Tokenizer splits raw text into an ordered token sequence.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Filter transforms one token sequence into another. Implementations may
// rewrite or drop tokens but never reorder them, and must not retain or
// mutate the input slice.
type Filter interface {
	Filter(tokens []Token) []Token
}

// Analyzer processes text into a stream of tokens.
// Implementations MUST be safe for concurrent use.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(text string) []Token
}
