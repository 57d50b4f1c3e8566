package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Collect raw hrefs of navigable links
- Resolve the document base URL

The extractor never normalizes or filters links; that belongs to the normalizer.
*/

type DomExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
) DomExtractor {
	return DomExtractor{
		metadataSink: metadataSink,
	}
}

func (d *DomExtractor) Extract(
	sourceUrl url.URL,
	htmlByte []byte,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := extract(sourceUrl, htmlByte)
	if err != nil {
		var extractionError *ExtractionError
		errors.As(err, &extractionError)
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DomExtractor.Extract",
			mapExtractionErrorToMetadataCause(extractionError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceUrl.String()),
			},
		)
		return ExtractionResult{}, extractionError
	}
	return result, nil
}

func extract(sourceUrl url.URL, htmlByte []byte) (ExtractionResult, error) {
	doc, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}

	// Use goquery as convenience wrapper
	gqDoc := goquery.NewDocumentFromNode(doc)

	return ExtractionResult{
		BaseURL: resolveBase(gqDoc, sourceUrl),
		Hrefs:   collectHrefs(gqDoc),
	}, nil
}

func collectHrefs(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	hrefs := []string{}

	doc.Find(strings.Join(LinkSelectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		hrefs = append(hrefs, href)
	})

	return hrefs
}

// resolveBase honors the first <base href>; an unparsable base is ignored.
func resolveBase(doc *goquery.Document, sourceUrl url.URL) url.URL {
	href, ok := doc.Find(baseSelector).First().Attr("href")
	if !ok {
		return sourceUrl
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return sourceUrl
	}
	return *sourceUrl.ResolveReference(ref)
}
