package ingest

// Pipeline prepares raw entry text for the encoder and the keyword extractor:
// text → optional markup stripping → case-folded whitespace tokens.
// Both consumers see the same token stream for a given call.
type Pipeline struct {
	stripMarkup bool
}

// NewPipeline creates a pipeline. With stripMarkup false the text is
// tokenized verbatim.
func NewPipeline(stripMarkup bool) *Pipeline {
	return &Pipeline{stripMarkup: stripMarkup}
}

// Processed is an entry after preparation.
type Processed struct {
	Text   string
	Tokens []string
}

// Process runs text through the pipeline.
func (p *Pipeline) Process(text string) Processed {
	if p != nil && p.stripMarkup {
		text = StripMarkup(text)
	}
	return Processed{
		Text:   text,
		Tokens: Fields(text),
	}
}
