package frontier_test

import (
	"testing"

	"github.com/rohmanhakim/silent-crawler/internal/frontier"
)

func TestEnqueueDequeue(t *testing.T) {
	queue := frontier.NewFIFOQueue[frontier.CrawlToken]()

	first := frontier.NewCrawlToken(mustURL(t, "https://example.com/"), 0)
	second := frontier.NewCrawlToken(mustURL(t, "https://example.com/a/"), 1)
	third := frontier.NewCrawlToken(mustURL(t, "https://example.com/b/"), 1)

	if size := queue.Size(); size != 0 {
		t.Errorf("should have zero size, got: %d", size)
	}

	queue.Enqueue(first)
	queue.Enqueue(second)
	queue.Enqueue(third)

	if size := queue.Size(); size != 3 {
		t.Errorf("should have size 3, got: %d", size)
	}

	for i, want := range []frontier.CrawlToken{first, second, third} {
		got, ok := queue.Dequeue()
		if !ok {
			t.Fatalf("dequeue %d: should return ok", i)
		}
		if got.URL() != want.URL() || got.Depth() != want.Depth() {
			t.Errorf("dequeue %d: want %v@%d, got %v@%d", i, want.URL(), want.Depth(), got.URL(), got.Depth())
		}
	}

	if size := queue.Size(); size != 0 {
		t.Errorf("should have zero size, got: %d", size)
	}

	if _, ok := queue.Dequeue(); ok {
		t.Error("should not return ok on empty queue")
	}
}

func TestEnqueueAfterDrain(t *testing.T) {
	queue := frontier.NewFIFOQueue[int]()
	queue.Enqueue(1)
	queue.Dequeue()
	queue.Enqueue(2)

	got, ok := queue.Dequeue()
	if !ok || got != 2 {
		t.Errorf("expected 2, got %d (ok=%v)", got, ok)
	}
}

func TestPeekKeepsHead(t *testing.T) {
	queue := frontier.NewFIFOQueue[int]()
	if _, ok := queue.Peek(); ok {
		t.Error("should not return ok on empty queue")
	}

	queue.Enqueue(1)
	queue.Enqueue(2)

	got, ok := queue.Peek()
	if !ok || got != 1 {
		t.Errorf("expected 1, got %d (ok=%v)", got, ok)
	}
	if size := queue.Size(); size != 2 {
		t.Errorf("peek should not remove, size %d", size)
	}
}
