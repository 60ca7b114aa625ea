package tts

import "strings"

var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// SplitText splits text into chunks no longer than maxSize, breaking at
// sentence boundaries. A single sentence that exceeds the limit is split
// again on word boundaries. Chunk order is significant.
func SplitText(text string, maxSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range splitSentences(text) {
		if current.Len()+len(sentence)+1 <= maxSize {
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(sentence)
			continue
		}

		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if len(sentence) > maxSize {
			words, rest := splitWords(sentence, maxSize)
			chunks = append(chunks, words...)
			current.WriteString(rest)
			continue
		}

		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	remaining := text

	for remaining != "" {
		cut := len(remaining)
		for _, ender := range sentenceEnders {
			if idx := strings.Index(remaining, ender); idx >= 0 && idx+1 < cut {
				cut = idx + 1
			}
		}

		sentence := strings.TrimSpace(remaining[:cut])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}

	return sentences
}

// splitWords packs words into maxSize chunks and returns the complete
// chunks plus the trailing partial chunk.
func splitWords(sentence string, maxSize int) (chunks []string, rest string) {
	var current strings.Builder

	for _, word := range strings.Fields(sentence) {
		if current.Len()+len(word)+1 > maxSize && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}

	return chunks, current.String()
}
