package tts

import (
	"math"
	"testing"
)

func charAlignment(text string, charDur float64) Alignment {
	var a Alignment
	var at float64
	for _, r := range text {
		a.Characters = append(a.Characters, string(r))
		a.StartTimes = append(a.StartTimes, at)
		at += charDur
		a.EndTimes = append(a.EndTimes, at)
	}
	return a
}

func TestAlignmentDuration(t *testing.T) {
	a := charAlignment("hello", 0.1)
	if got := a.Duration(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Duration() = %v, want 0.5", got)
	}
	if got := (Alignment{}).Duration(); got != 0 {
		t.Errorf("empty Duration() = %v, want 0", got)
	}
}

func TestMergeAlignmentsOffsets(t *testing.T) {
	first := charAlignment("ab", 0.1)
	second := charAlignment("cd", 0.1)

	merged := MergeAlignments([]Alignment{first, second})

	if len(merged.Characters) != 4 {
		t.Fatalf("characters = %d, want 4", len(merged.Characters))
	}
	// Second chunk's times shift by the first chunk's duration.
	if math.Abs(merged.StartTimes[2]-0.2) > 1e-9 {
		t.Errorf("StartTimes[2] = %v, want 0.2", merged.StartTimes[2])
	}
	if math.Abs(merged.EndTimes[3]-0.4) > 1e-9 {
		t.Errorf("EndTimes[3] = %v, want 0.4", merged.EndTimes[3])
	}
}

func TestDeriveTimestampsWordsAndPunctuation(t *testing.T) {
	a := charAlignment("hi. there", 0.1)

	tokens := DeriveTimestamps(a)

	want := []string{"hi", ".", "there"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %d, want %d", len(tokens), len(want))
	}
	for i, text := range want {
		if tokens[i].Text != text {
			t.Errorf("tokens[%d].Text = %q, want %q", i, tokens[i].Text, text)
		}
	}

	// "hi" spans its two characters.
	if math.Abs(tokens[0].StartTime-0.0) > 1e-9 || math.Abs(tokens[0].EndTime-0.2) > 1e-9 {
		t.Errorf("hi span = [%v, %v], want [0, 0.2]", tokens[0].StartTime, tokens[0].EndTime)
	}
	// The period is its own token.
	if math.Abs(tokens[1].StartTime-0.2) > 1e-9 || math.Abs(tokens[1].EndTime-0.3) > 1e-9 {
		t.Errorf("period span = [%v, %v], want [0.2, 0.3]", tokens[1].StartTime, tokens[1].EndTime)
	}
	// "there" starts after the space.
	if math.Abs(tokens[2].StartTime-0.4) > 1e-9 {
		t.Errorf("there start = %v, want 0.4", tokens[2].StartTime)
	}
}

func TestDeriveTimestampsNewlines(t *testing.T) {
	a := charAlignment("one\ntwo", 0.1)

	tokens := DeriveTimestamps(a)
	if len(tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(tokens))
	}
	if tokens[0].Text != "one" || tokens[1].Text != "two" {
		t.Errorf("tokens = %q, %q", tokens[0].Text, tokens[1].Text)
	}
}
