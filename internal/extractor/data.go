package extractor

import "net/url"

// ExtractionResult holds the extraction outcome.
// BaseURL is the URL relative hrefs resolve against: the page URL,
// or the document's <base href> when present.
// Hrefs are raw attribute values in document order, deduplicated.
type ExtractionResult struct {
	BaseURL url.URL
	Hrefs   []string
}
