package stream

import (
	"strings"
	"time"

	"ai-notetaking-client/internal/constant"
)

// ThinkingStep is one reasoning segment of a streamed agent reply,
// surfaced separately from the answer text.
type ThinkingStep struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ThinkingBlock is a raw scan result: one tag-delimited segment of the
// cumulative message text. Ordinal is the index of its opening tag within
// the text; since message text is append-only for the life of a session,
// the ordinal identifies the same logical block across re-scans.
type ThinkingBlock struct {
	Ordinal  int
	Content  string
	Complete bool
}

var thinkingSpellings = []string{constant.ThinkingTagLong, constant.ThinkingTagShort}

// ExtractThinkingBlocks scans the whole cumulative message text for
// <thinking>...</thinking> and <think>...</think> segments (case-insensitive,
// closing tag must match the opening spelling). It returns every completed
// block plus at most one trailing incomplete block: an opening tag with no
// matching close can only be the still-streaming last block.
func ExtractThinkingBlocks(text string) []ThinkingBlock {
	var blocks []ThinkingBlock
	lower := strings.ToLower(text)

	pos := 0
	ordinal := 0
	for {
		openIdx, spelling := nextOpeningTag(lower, pos)
		if openIdx < 0 {
			break
		}

		openTag := "<" + spelling + ">"
		closeTag := "</" + spelling + ">"
		contentStart := openIdx + len(openTag)

		closeIdx := strings.Index(lower[contentStart:], closeTag)
		if closeIdx < 0 {
			// Still-open block: runs to end of text. Only one can exist.
			content := strings.TrimSpace(text[contentStart:])
			blocks = append(blocks, ThinkingBlock{Ordinal: ordinal, Content: content})
			break
		}

		content := strings.TrimSpace(text[contentStart : contentStart+closeIdx])
		if content != "" {
			blocks = append(blocks, ThinkingBlock{Ordinal: ordinal, Content: content, Complete: true})
		}
		pos = contentStart + closeIdx + len(closeTag)
		ordinal++
	}

	return blocks
}

// nextOpeningTag finds the earliest opening tag of either spelling at or
// after pos. Searching for the literal "<think>" cannot false-match inside
// "<thinking>" because of the closing bracket.
func nextOpeningTag(lower string, pos int) (int, string) {
	bestIdx := -1
	bestSpelling := ""
	for _, spelling := range thinkingSpellings {
		idx := strings.Index(lower[pos:], "<"+spelling+">")
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || pos+idx < bestIdx {
			bestIdx = pos + idx
			bestSpelling = spelling
		}
	}
	return bestIdx, bestSpelling
}

// thinkingState is a ThinkingStep plus its merge bookkeeping. A step marked
// complete is never downgraded by a later re-scan that still sees its block
// as unterminated text.
type thinkingState struct {
	step     ThinkingStep
	complete bool
}

// ThinkingTracker merges scan results across chunks. Tag-discovered steps
// are identified by opening-tag ordinal; steps pushed by a dedicated
// "thinking" event carry no ordinal and are matched by content prefix.
type ThinkingTracker struct {
	byOrdinal map[int]*thinkingState
	order     []*thinkingState
}

func NewThinkingTracker() *ThinkingTracker {
	return &ThinkingTracker{
		byOrdinal: make(map[int]*thinkingState),
	}
}

// Apply re-scans the cumulative message text and folds the result into the
// tracked steps. Timestamps are set at first discovery and preserved when a
// block's content is updated or finalized.
func (t *ThinkingTracker) Apply(text string, now time.Time) {
	for _, block := range ExtractThinkingBlocks(text) {
		state, exists := t.byOrdinal[block.Ordinal]
		if !exists {
			state = &thinkingState{step: ThinkingStep{Content: block.Content, Timestamp: now}, complete: block.Complete}
			t.byOrdinal[block.Ordinal] = state
			t.order = append(t.order, state)
			continue
		}

		if block.Complete {
			state.step.Content = block.Content
			state.complete = true
		} else if !state.complete {
			// An already-complete block must not be resurrected as
			// incomplete by re-scanning stale text.
			state.step.Content = block.Content
		}
	}
}

// ApplyEvent handles the dedicated "thinking" event: a self-contained,
// authoritative step. It matches against existing steps by content prefix;
// a match becomes final with its original timestamp, otherwise the step is
// appended. The matched step is always marked complete so a later partial
// tag re-scan of the same content is not mistaken for an open block.
func (t *ThinkingTracker) ApplyEvent(content string, now time.Time) {
	key := contentPrefix(content)
	for _, state := range t.order {
		if contentPrefix(state.step.Content) == key {
			state.step.Content = content
			state.complete = true
			return
		}
	}
	t.order = append(t.order, &thinkingState{
		step:     ThinkingStep{Content: content, Timestamp: now},
		complete: true,
	})
}

// Steps returns the merged steps: complete steps in discovery order,
// followed by the incomplete one if present.
func (t *ThinkingTracker) Steps() []ThinkingStep {
	steps := make([]ThinkingStep, 0, len(t.order))
	var open []ThinkingStep
	for _, state := range t.order {
		if state.complete {
			steps = append(steps, state.step)
		} else {
			open = append(open, state.step)
		}
	}
	return append(steps, open...)
}

// Reset drops all tracked steps.
func (t *ThinkingTracker) Reset() {
	t.byOrdinal = make(map[int]*thinkingState)
	t.order = nil
}

func contentPrefix(content string) string {
	if len(content) > constant.ThinkingEventPrefixLength {
		return content[:constant.ThinkingEventPrefixLength]
	}
	return content
}
