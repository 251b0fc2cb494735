package tokens

import (
	"fmt"
	"strings"

	"ai-notetaking-client/internal/constant"
	"ai-notetaking-client/internal/dto"
)

// Estimate approximates the token count of a text using a character
// heuristic. This is not a real tokenizer; it only needs to agree with the
// backend's own estimate, which uses the same chars-per-token divisor.
func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len(trimmed) / constant.TokenCharsPerToken
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// BuildContextBlock reconstructs the textual context block the server
// injects into the agent prompt when retrieved notes are attached. The
// format must track the server's: fixed header, one line per note with
// title/similarity/tags, a preview line, fixed footer. It exists so the
// token cost of the injected context can be added to the input estimate.
func BuildContextBlock(notes []dto.RetrievedNoteDTO) string {
	if len(notes) == 0 {
		return ""
	}

	var block strings.Builder
	block.WriteString(constant.ContextBlockHeader)
	block.WriteString("\n")

	for _, note := range notes {
		block.WriteString(fmt.Sprintf("- %q (similarity: %.2f)", note.Title, note.Similarity))
		if len(note.Tags) > 0 {
			block.WriteString(fmt.Sprintf(" [tags: %s]", strings.Join(note.Tags, ", ")))
		}
		block.WriteString("\n")
		if note.Preview != "" {
			block.WriteString(fmt.Sprintf("  Preview: %s\n", note.Preview))
		}
	}

	block.WriteString(constant.ContextBlockFooter)
	return block.String()
}

// EstimateContext is the token cost of the reconstructed context block.
func EstimateContext(notes []dto.RetrievedNoteDTO) int {
	return Estimate(BuildContextBlock(notes))
}
