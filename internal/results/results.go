package results

import (
	"net/url"
	"sync"
)

/*
Aggregator Responsibilities
- Collect discovered URLs, directories, subdomains and external links
- Deduplicate each set, keeping first-insertion order
- Hand out consistent snapshots while workers keep recording

Safe for concurrent use by all workers.
*/

// ResultSets is the crawl output. External is filled only when external links are recorded.
type ResultSets struct {
	URLs        []string `json:"urls"`
	Directories []string `json:"directories"`
	Subdomains  []string `json:"subdomains"`
	External    []string `json:"external,omitempty"`
}

// Counts summarizes the size of each set.
type Counts struct {
	URLs        int
	Directories int
	Subdomains  int
	External    int
}

type Aggregator struct {
	mu          sync.Mutex
	urls        orderedSet
	directories orderedSet
	subdomains  orderedSet
	external    orderedSet
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		urls:        newOrderedSet(),
		directories: newOrderedSet(),
		subdomains:  newOrderedSet(),
		external:    newOrderedSet(),
	}
}

// RecordURL adds a visited URL. Reports whether it was new.
func (a *Aggregator) RecordURL(u url.URL) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.urls.add(u.String())
}

// RecordDirectory adds a directory path such as "/docs/".
func (a *Aggregator) RecordDirectory(directory string) bool {
	if directory == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.directories.add(directory)
}

// RecordSubdomain adds a subdomain hostname such as "blog.example.com".
func (a *Aggregator) RecordSubdomain(hostname string) bool {
	if hostname == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.subdomains.add(hostname)
}

// RecordExternal adds a link that points outside the crawl scope.
func (a *Aggregator) RecordExternal(u url.URL) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.external.add(u.String())
}

// Snapshot returns copies of all sets in insertion order.
// Empty sets are returned as empty slices except External, which stays nil.
func (a *Aggregator) Snapshot() ResultSets {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := ResultSets{
		URLs:        a.urls.items(),
		Directories: a.directories.items(),
		Subdomains:  a.subdomains.items(),
	}
	if len(a.external.order) > 0 {
		snapshot.External = a.external.items()
	}
	return snapshot
}

func (a *Aggregator) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Counts{
		URLs:        len(a.urls.order),
		Directories: len(a.directories.order),
		Subdomains:  len(a.subdomains.order),
		External:    len(a.external.order),
	}
}

type orderedSet struct {
	index map[string]struct{}
	order []string
}

func newOrderedSet() orderedSet {
	return orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(item string) bool {
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.order = append(s.order, item)
	return true
}

func (s *orderedSet) items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
