package frontier

import (
	"net/url"
)

// CrawlToken is one admitted (URL, depth) entry handed to a worker.
// A token is created once per canonical URL and consumed exactly once.
type CrawlToken struct {
	url   url.URL
	depth int
}

func NewCrawlToken(u url.URL, depth int) CrawlToken {
	return CrawlToken{
		url:   u,
		depth: depth,
	}
}

func (c CrawlToken) URL() url.URL {
	return c.url
}

func (c CrawlToken) Depth() int {
	return c.depth
}
