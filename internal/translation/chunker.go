package translation

import (
	"strings"
	"unicode/utf8"
)

// ParagraphSeparator splits documents into paragraphs and rejoins translated chunks.
const ParagraphSeparator = "\n\n"

// DefaultMaxChunkLength is the per-segment character budget used when none is configured.
const DefaultMaxChunkLength = 4000

// Segment is one ordered slice of a document.
type Segment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Split groups the paragraphs of document into segments of at most maxChunkLength
// characters, separators included. A paragraph longer than the budget becomes its
// own oversized segment. Joining the segment texts with ParagraphSeparator reproduces
// document exactly; an empty document yields no segments.
func Split(document string, maxChunkLength int) []Segment {
	if document == "" {
		return nil
	}
	if maxChunkLength < 1 {
		maxChunkLength = 1
	}

	paragraphs := strings.Split(document, ParagraphSeparator)
	segments := make([]Segment, 0, len(paragraphs))

	var current strings.Builder
	currentLen := 0
	open := false
	flush := func() {
		segments = append(segments, Segment{Index: len(segments), Text: current.String()})
		current.Reset()
		currentLen = 0
		open = false
	}

	sepLen := utf8.RuneCountInString(ParagraphSeparator)
	for _, paragraph := range paragraphs {
		paraLen := utf8.RuneCountInString(paragraph)
		if open && currentLen+sepLen+paraLen > maxChunkLength {
			flush()
		}
		if open {
			current.WriteString(ParagraphSeparator)
			currentLen += sepLen
		}
		current.WriteString(paragraph)
		currentLen += paraLen
		open = true
	}
	if open {
		flush()
	}

	return segments
}

// Join concatenates segment texts in slice order with ParagraphSeparator.
func Join(texts []string) string {
	return strings.Join(texts, ParagraphSeparator)
}
