package tts

import "historymaker/internal/model"

// Alignment is the character-level timing data returned alongside a chunk
// of synthesized audio.
type Alignment struct {
	Characters []string  `json:"characters"`
	StartTimes []float64 `json:"character_start_times_seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds"`
}

// Duration is the end time of the last character.
func (a Alignment) Duration() float64 {
	if len(a.EndTimes) == 0 {
		return 0
	}
	return a.EndTimes[len(a.EndTimes)-1]
}

// MergeAlignments concatenates chunk alignments in order, shifting each
// chunk's times by the running sum of the durations before it.
func MergeAlignments(alignments []Alignment) Alignment {
	var merged Alignment
	var offset float64

	for _, a := range alignments {
		merged.Characters = append(merged.Characters, a.Characters...)
		for _, t := range a.StartTimes {
			merged.StartTimes = append(merged.StartTimes, t+offset)
		}
		for _, t := range a.EndTimes {
			merged.EndTimes = append(merged.EndTimes, t+offset)
		}
		offset += a.Duration()
	}

	return merged
}

// DeriveTimestamps collapses a character alignment into token timestamps.
// Runs of non-boundary characters become word tokens; the punctuation
// marks . , ! ? become their own single-character tokens so the UI can
// time pauses. Space and newline only terminate words.
func DeriveTimestamps(a Alignment) []model.Timestamp {
	var tokens []model.Timestamp
	var word []byte
	var wordStart, wordEnd float64

	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, model.Timestamp{
				Text:      string(word),
				StartTime: wordStart,
				EndTime:   wordEnd,
			})
			word = word[:0]
		}
	}

	for i, char := range a.Characters {
		switch char {
		case " ", "\n":
			flush()
		case ".", ",", "!", "?":
			flush()
			tokens = append(tokens, model.Timestamp{
				Text:      char,
				StartTime: a.StartTimes[i],
				EndTime:   a.EndTimes[i],
			})
		default:
			if len(word) == 0 {
				wordStart = a.StartTimes[i]
			}
			word = append(word, char...)
			wordEnd = a.EndTimes[i]
		}
	}
	flush()

	return tokens
}
