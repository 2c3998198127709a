package ingest

import (
	"strings"
	"testing"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(100, 20)

	got := c.Split("a short passage of text")
	if len(got) != 1 {
		t.Fatalf("expected one chunk, got %d", len(got))
	}
	if got[0] != "a short passage of text" {
		t.Errorf("unexpected chunk: %q", got[0])
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(100, 20)

	if got := c.Split("   \n\t  "); got != nil {
		t.Errorf("whitespace-only input should produce no chunks, got %v", got)
	}
}

func TestChunker_RespectsSizeAndWordBoundaries(t *testing.T) {
	c := NewChunker(50, 10)

	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	got := c.Split(text)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}

	for i, chunk := range got {
		if len(chunk) > 50 {
			t.Errorf("chunk %d exceeds size: %d chars", i, len(chunk))
		}
		if strings.HasPrefix(chunk, " ") || strings.HasSuffix(chunk, " ") {
			t.Errorf("chunk %d has boundary whitespace: %q", i, chunk)
		}
		// No partial words: every space-separated token must be a
		// complete word from the source
		for _, w := range strings.Fields(chunk) {
			switch w {
			case "lorem", "ipsum", "dolor", "sit", "amet":
			default:
				t.Fatalf("chunk %d contains split word %q", i, w)
			}
		}
	}
}

func TestChunker_AdjacentChunksOverlap(t *testing.T) {
	c := NewChunker(60, 20)

	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike november oscar papa"
	got := c.Split(text)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}

	for i := 1; i < len(got); i++ {
		prevWords := strings.Fields(got[i-1])
		firstWord := strings.Fields(got[i])[0]
		found := false
		for _, w := range prevWords {
			if w == firstWord {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("chunk %d does not overlap its predecessor: starts with %q", i, firstWord)
		}
	}
}

func TestChunker_OversizedWordStillEmitted(t *testing.T) {
	c := NewChunker(10, 2)

	long := strings.Repeat("x", 40)
	got := c.Split("tiny " + long + " end")

	joined := strings.Join(got, " ")
	if !strings.Contains(joined, long) {
		t.Error("a word longer than the chunk size must not be dropped")
	}
}

func TestChunker_CollapsesWhitespace(t *testing.T) {
	c := NewChunker(100, 10)

	got := c.Split("word\n\n\n  another\t\tthird")
	if len(got) != 1 || got[0] != "word another third" {
		t.Errorf("expected collapsed whitespace, got %v", got)
	}
}

func TestNewChunker_ClampsBadOverlap(t *testing.T) {
	c := NewChunker(100, 500)
	if c.overlap >= c.size {
		t.Errorf("overlap %d must be smaller than size %d", c.overlap, c.size)
	}

	// Must still terminate
	text := strings.Repeat("word ", 200)
	if got := c.Split(text); len(got) == 0 {
		t.Error("expected chunks")
	}
}
