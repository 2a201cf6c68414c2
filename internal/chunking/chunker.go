package chunking

import "strings"

const paragraphSep = "\n\n"

// Chunk is a run of whole paragraphs. Start and End are byte offsets into
// the original text; consecutive chunks share their boundary.
type Chunk struct {
	Text  string
	Start int
	End   int
}

type paragraph struct {
	text  string
	start int
}

// Split groups blank-line separated paragraphs into chunks for the LLM.
// A chunk is closed before a paragraph that would push it over maxTokens or
// make it reach minChunkChars. Text without paragraphs becomes one chunk.
func Split(text string, minChunkChars, maxTokens int, counter TokenCounter) []Chunk {
	if counter == nil {
		counter = EstimateCounter{}
	}

	chunks := make([]Chunk, 0, 4)
	current := ""
	currentStart := 0
	flush := func(nextStart int) {
		chunks = append(chunks, Chunk{
			Text:  strings.TrimSpace(current),
			Start: currentStart,
			End:   nextStart,
		})
		currentStart = nextStart
	}

	for _, para := range splitParagraphs(text) {
		if strings.TrimSpace(para.text) == "" {
			continue
		}
		withSep := para.text + paragraphSep
		candidate := current + withSep

		switch {
		case current != "" && counter.Count(candidate) > maxTokens:
			flush(para.start)
			current = withSep
		case current != "" && len([]rune(candidate)) >= minChunkChars:
			flush(para.start)
			current = withSep
		default:
			current = candidate
		}
	}

	if strings.TrimSpace(current) != "" {
		flush(len(text))
	}
	if len(chunks) == 0 {
		return []Chunk{{Text: text, Start: 0, End: len(text)}}
	}
	chunks[len(chunks)-1].End = len(text)
	return chunks
}

// Join rebuilds the paragraph text from processed chunks.
func Join(parts []string) string {
	return strings.Join(parts, paragraphSep)
}

func splitParagraphs(text string) []paragraph {
	paragraphs := make([]paragraph, 0, 8)
	offset := 0
	for {
		idx := strings.Index(text[offset:], paragraphSep)
		if idx < 0 {
			paragraphs = append(paragraphs, paragraph{text: text[offset:], start: offset})
			return paragraphs
		}
		paragraphs = append(paragraphs, paragraph{text: text[offset : offset+idx], start: offset})
		offset += idx + len(paragraphSep)
	}
}
