package ingest

import "strings"

// Chunker splits document text into fixed-size overlapping chunks.
// Splits land on word boundaries so no chunk starts or ends mid-word.
type Chunker struct {
	size    int // target chunk length in characters
	overlap int // characters carried over between adjacent chunks
}

// NewChunker creates a chunker. Overlap larger than size would never
// advance, so it is clamped to size/2.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 2
	}

	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks. Whitespace runs are collapsed first;
// filings arrive as HTML-extracted text with heavy padding.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(words) {
		length := 0
		end := start
		for end < len(words) && length+len(words[end])+1 <= c.size {
			length += len(words[end]) + 1
			end++
		}
		// A single word longer than the chunk size still gets a chunk
		if end == start {
			end = start + 1
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}

		// Step back far enough to carry roughly overlap characters
		back := end
		carried := 0
		for back > start+1 && carried+len(words[back-1])+1 <= c.overlap {
			carried += len(words[back-1]) + 1
			back--
		}
		start = back
	}

	return chunks
}
