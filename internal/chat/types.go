// Package chat adapts a human-facing chat web application into a
// request/response API by driving its DOM through an attached browser page.
package chat

// Role names follow the conversation convention of the surrounding system.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockKindText is the only content kind the target application can display.
const BlockKindText = "text"

// ContentBlock is one typed piece of a turn's content. Only text blocks are
// meaningful; other kinds are rendered as an explicit placeholder so the
// transformation stays visible.
type ContentBlock struct {
	Kind string
	Text string
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockKindText, Text: text}
}

// Turn is one ordered conversation entry.
type Turn struct {
	Role    string
	Content []ContentBlock
}

// UserTurn builds a single-text user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// Chunk is the tagged union produced by CreateMessage: exactly one TextChunk
// followed by exactly one UsageChunk per successful call.
type Chunk interface {
	isChunk()
}

// TextChunk carries the full generated reply. The target application exposes
// no partial output, so the whole response arrives as a single chunk even
// though the contract is nominally a stream.
type TextChunk struct {
	Text string
}

func (TextChunk) isChunk() {}

// UsageChunk carries token accounting. True usage is unavailable from the web
// application; both values are always zero.
type UsageChunk struct {
	InputTokens  int
	OutputTokens int
}

func (UsageChunk) isChunk() {}

// ModelInfo is the static metadata reported for the bridged model.
type ModelInfo struct {
	ContextWindow   int  `json:"context_window"`
	MaxOutputTokens int  `json:"max_output_tokens"`
	SupportsImages  bool `json:"supports_images"`
	SupportsTools   bool `json:"supports_tools"`
	SupportsCaching bool `json:"supports_caching"`
}
