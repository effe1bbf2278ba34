package analysis

// Pipeline is a compiled analyzer: one tokenizer followed by an ordered
// filter chain. A Pipeline is immutable once built.
type Pipeline struct {
	name          string
	tokenizer     Tokenizer
	filters       []Filter
	tokenizerKind string
	filterKinds   []string
}

// Description summarizes how a Pipeline was assembled.
type Description struct {
	Name      string   `json:"name"`
	Tokenizer string   `json:"tokenizer"`
	Filters   []string `json:"filters"`
}

// Stage pairs a built component with the catalog kind it came from.
type Stage[C any] struct {
	Kind      string
	Component C
}

// NewPipeline composes a tokenizer and filters, applied in the given order.
func NewPipeline(name string, tokenizer Stage[Tokenizer], filters ...Stage[Filter]) *Pipeline {
	p := &Pipeline{
		name:          name,
		tokenizer:     tokenizer.Component,
		tokenizerKind: tokenizer.Kind,
		filters:       make([]Filter, len(filters)),
		filterKinds:   make([]string, len(filters)),
	}
	for i, f := range filters {
		p.filters[i] = f.Component
		p.filterKinds[i] = f.Kind
	}
	return p
}

// Name returns the name the pipeline was compiled under.
func (p *Pipeline) Name() string {
	return p.name
}

// Analyze runs the tokenizer over text and threads the result through each
// filter in chain order.
func (p *Pipeline) Analyze(text string) []Token {
	tokens := p.tokenizer.Tokenize(text)
	for _, f := range p.filters {
		if len(tokens) == 0 {
			break
		}
		tokens = f.Filter(tokens)
	}
	return tokens
}

// Describe returns the component kinds making up the pipeline.
func (p *Pipeline) Describe() Description {
	filters := make([]string, len(p.filterKinds))
	copy(filters, p.filterKinds)
	return Description{
		Name:      p.name,
		Tokenizer: p.tokenizerKind,
		Filters:   filters,
	}
}
