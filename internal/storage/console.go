package storage

import (
	"fmt"
	"io"

	"github.com/rohmanhakim/silent-crawler/internal/results"
)

// ConsoleReporter prints the human-readable crawl report.
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Summary prints the counts of each result set.
func (c *ConsoleReporter) Summary(resultSets results.ResultSets) {
	fmt.Fprintln(c.out, "\nCrawl Summary:")
	fmt.Fprintf(c.out, "Total URLs discovered: %d\n", len(resultSets.URLs))
	fmt.Fprintf(c.out, "Directories found: %d\n", len(resultSets.Directories))
	fmt.Fprintf(c.out, "Subdomains discovered: %d\n", len(resultSets.Subdomains))
	if len(resultSets.External) > 0 {
		fmt.Fprintf(c.out, "External links: %d\n", len(resultSets.External))
	}
}

// Saved reports where the JSON document was written.
func (c *ConsoleReporter) Saved(writeResult WriteResult) {
	fmt.Fprintf(c.out, "\nDetailed results saved to %s\n", writeResult.Path())
}

// Details lists every result set, one entry per line.
func (c *ConsoleReporter) Details(resultSets results.ResultSets) {
	c.section("Discovered URLs", resultSets.URLs)
	c.section("Discovered Directories", resultSets.Directories)
	c.section("Discovered Subdomains", resultSets.Subdomains)
	if len(resultSets.External) > 0 {
		c.section("External Links", resultSets.External)
	}
}

func (c *ConsoleReporter) section(title string, items []string) {
	fmt.Fprintf(c.out, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(c.out, "  %s\n", item)
	}
}
