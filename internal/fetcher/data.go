package fetcher

import (
	"net/url"
	"time"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
	timeout   time.Duration
	htmlOnly  bool
}

// NewFetchParam describes one fetch. The timeout bounds each attempt; zero means no timeout.
func NewFetchParam(fetchUrl url.URL, userAgent string, timeout time.Duration) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// HTMLOnly returns a copy of the param whose response body is read only for HTML content.
func (p FetchParam) HTMLOnly() FetchParam {
	p.htmlOnly = true
	return p
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

func (p FetchParam) UserAgent() string {
	return p.userAgent
}

func (p FetchParam) Timeout() time.Duration {
	return p.timeout
}

type FetchResult struct {
	url      url.URL
	finalUrl url.URL
	body     []byte
	meta     ResponseMeta
}

// URL returns the requested URL.
func (f *FetchResult) URL() url.URL {
	return f.url
}

// FinalURL returns the URL after redirects; relative links resolve against it.
func (f *FetchResult) FinalURL() url.URL {
	return f.finalUrl
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) IsHTML() bool {
	return isHTMLContent(f.meta.contentType)
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

type ResponseMeta struct {
	statusCode          int
	contentType         string
	transferredSizeByte uint64
	responseHeaders     map[string]string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
) FetchResult {
	return FetchResult{
		url:      url,
		finalUrl: url,
		body:     body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}
}
