package stream

import (
	"testing"
	"time"
)

func TestExtractThinkingBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []ThinkingBlock
	}{
		{
			name: "no tags",
			text: "plain answer text",
			want: nil,
		},
		{
			name: "single complete block",
			text: "A<thinking>hello</thinking>B",
			want: []ThinkingBlock{{Ordinal: 0, Content: "hello", Complete: true}},
		},
		{
			name: "short spelling",
			text: "<think>quick check</think>done",
			want: []ThinkingBlock{{Ordinal: 0, Content: "quick check", Complete: true}},
		},
		{
			name: "case insensitive tags",
			text: "<THINKING>loud</Thinking>",
			want: []ThinkingBlock{{Ordinal: 0, Content: "loud", Complete: true}},
		},
		{
			name: "content is trimmed",
			text: "<thinking>\n  padded  \n</thinking>",
			want: []ThinkingBlock{{Ordinal: 0, Content: "padded", Complete: true}},
		},
		{
			name: "empty complete block is skipped but consumes its ordinal",
			text: "<thinking></thinking><thinking>real</thinking>",
			want: []ThinkingBlock{{Ordinal: 1, Content: "real", Complete: true}},
		},
		{
			name: "incomplete block runs to end of text",
			text: "A<thinking>still going",
			want: []ThinkingBlock{{Ordinal: 0, Content: "still going"}},
		},
		{
			name: "complete then incomplete",
			text: "<think>first</think>mid<thinking>second half",
			want: []ThinkingBlock{
				{Ordinal: 0, Content: "first", Complete: true},
				{Ordinal: 1, Content: "second half"},
			},
		},
		{
			name: "mixed spellings close with their own tag",
			text: "<thinking>uses long</thinking><think>uses short</think>",
			want: []ThinkingBlock{
				{Ordinal: 0, Content: "uses long", Complete: true},
				{Ordinal: 1, Content: "uses short", Complete: true},
			},
		},
		{
			name: "long spelling does not close the short one",
			text: "<think>inner</thinking>",
			want: []ThinkingBlock{{Ordinal: 0, Content: "inner</thinking>"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractThinkingBlocks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("block count = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestThinkingTrackerSingleChunk(t *testing.T) {
	tracker := NewThinkingTracker()
	tracker.Apply("A<thinking>hello</thinking>B", time.Now())

	steps := tracker.Steps()
	if len(steps) != 1 {
		t.Fatalf("step count = %d, want 1", len(steps))
	}
	if steps[0].Content != "hello" {
		t.Errorf("content = %q, want %q", steps[0].Content, "hello")
	}
}

// The same text delivered in two chunks must converge to the single-chunk
// result, and the step keeps the timestamp from its first discovery.
func TestThinkingTrackerSplitDelivery(t *testing.T) {
	tracker := NewThinkingTracker()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Second)

	tracker.Apply("A<thinking>hel", first)

	steps := tracker.Steps()
	if len(steps) != 1 || steps[0].Content != "hel" {
		t.Fatalf("after first chunk: steps = %+v, want one incomplete step %q", steps, "hel")
	}

	tracker.Apply("A<thinking>hello</thinking>B", second)

	steps = tracker.Steps()
	if len(steps) != 1 {
		t.Fatalf("after second chunk: step count = %d, want 1", len(steps))
	}
	if steps[0].Content != "hello" {
		t.Errorf("content = %q, want %q", steps[0].Content, "hello")
	}
	if !steps[0].Timestamp.Equal(first) {
		t.Errorf("timestamp = %v, want the first discovery time %v", steps[0].Timestamp, first)
	}
}

// A step finalized by a dedicated thinking event must not be downgraded to
// incomplete when a later re-scan still sees its tag unterminated.
func TestThinkingTrackerEventGuardsRescan(t *testing.T) {
	tracker := NewThinkingTracker()
	now := time.Now()

	partial := "checking the user's notebook for recently updated entries about tr"
	final := "checking the user's notebook for recently updated entries about travel plans"

	tracker.Apply("<thinking>"+partial, now)
	tracker.ApplyEvent(final, now.Add(time.Second))

	// Re-scan of the stale, still-open tag text.
	tracker.Apply("<thinking>"+partial, now.Add(2*time.Second))

	steps := tracker.Steps()
	if len(steps) != 1 {
		t.Fatalf("step count = %d, want 1", len(steps))
	}
	if steps[0].Content != final {
		t.Errorf("content = %q, want the event's authoritative text", steps[0].Content)
	}
	if !steps[0].Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want original %v", steps[0].Timestamp, now)
	}
}

func TestThinkingTrackerEventAppendsWhenUnmatched(t *testing.T) {
	tracker := NewThinkingTracker()
	now := time.Now()

	tracker.Apply("<thinking>tag sourced step</thinking>", now)
	tracker.ApplyEvent("an entirely different reasoning step", now)

	steps := tracker.Steps()
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	if steps[1].Content != "an entirely different reasoning step" {
		t.Errorf("second step = %q, want the event content", steps[1].Content)
	}
}

func TestThinkingTrackerIncompleteOrderedLast(t *testing.T) {
	tracker := NewThinkingTracker()
	now := time.Now()

	tracker.Apply("<think>open block", now)
	tracker.ApplyEvent("event sourced step", now)

	steps := tracker.Steps()
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	if steps[0].Content != "event sourced step" {
		t.Errorf("first step = %q, want the complete event step", steps[0].Content)
	}
	if steps[1].Content != "open block" {
		t.Errorf("last step = %q, want the incomplete block", steps[1].Content)
	}
}
