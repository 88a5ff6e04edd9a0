package chat

import (
	"fmt"
	"strings"
)

// promptSeparator sits between the system prompt and the conversation turns.
const promptSeparator = "\n\n---\n\n"

// EncodePrompt flattens a system prompt and ordered turns into the single
// text block injected into the chat input. Each turn renders as
// "role: content"; turns are joined by a blank line. Non-text blocks render
// as an explicit placeholder rather than being dropped silently.
func EncodePrompt(systemPrompt string, turns []Turn) string {
	var b strings.Builder

	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString(promptSeparator)
	}

	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(renderContent(turn.Content))
	}

	return strings.TrimRight(b.String(), " \t\n")
}

func renderContent(blocks []ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Kind == BlockKindText {
			parts = append(parts, block.Text)
			continue
		}
		parts = append(parts, fmt.Sprintf("[Unsupported %s]", block.Kind))
	}
	return strings.Join(parts, "\n")
}
