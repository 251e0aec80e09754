package llm

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// BlockType identifies the kind of content carried by a block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockError BlockType = "error"
)

// ContentBlock is a single typed unit of turn content. For error blocks,
// Text carries the public-safe message while Diagnostic keeps the private
// detail that is only ever logged or audited.
type ContentBlock struct {
	Type       BlockType `json:"type"`
	Text       string    `json:"text"`
	Diagnostic string    `json:"diagnostic,omitempty"`
}

// Usage is the normalized usage metadata reported for an assistant turn.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
}

// Turn is one message exchange unit in a conversation, normalized across
// vendors. User turns are synthesized locally and are structurally identical
// to assistant turns so they can be replayed as history.
type Turn struct {
	Role   Role           `json:"role"`
	Blocks []ContentBlock `json:"blocks"`
	Usage  *Usage         `json:"usage,omitempty"`
	Model  string         `json:"model,omitempty"`
}

// NewUserTurn synthesizes a user turn from raw text.
func NewUserTurn(text string) *Turn {
	return &Turn{
		Role:   RoleUser,
		Blocks: []ContentBlock{{Type: BlockText, Text: text}},
	}
}

// NewAssistantTurn builds a normalized assistant turn.
func NewAssistantTurn(text string, usage *Usage, model string) *Turn {
	return &Turn{
		Role:   RoleAssistant,
		Blocks: []ContentBlock{{Type: BlockText, Text: text}},
		Usage:  usage,
		Model:  model,
	}
}

// NewErrorTurn builds an error turn with a public-safe message and a
// private diagnostic.
func NewErrorTurn(public, diagnostic string) *Turn {
	return &Turn{
		Role:   RoleError,
		Blocks: []ContentBlock{{Type: BlockError, Text: public, Diagnostic: diagnostic}},
	}
}

// Text concatenates the turn's text blocks.
func (t *Turn) Text() string {
	if t == nil {
		return ""
	}
	out := ""
	for _, block := range t.Blocks {
		if block.Type != BlockText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += block.Text
	}
	return out
}

// IsError reports whether the turn represents a failed call.
func (t *Turn) IsError() bool {
	if t == nil {
		return false
	}
	if t.Role == RoleError {
		return true
	}
	for _, block := range t.Blocks {
		if block.Type == BlockError {
			return true
		}
	}
	return false
}

// ErrorText returns the public-safe message of the first error block.
func (t *Turn) ErrorText() string {
	if t == nil {
		return ""
	}
	for _, block := range t.Blocks {
		if block.Type == BlockError {
			return block.Text
		}
	}
	return ""
}

// HistoryToMessages flattens turns into vendor-neutral chat messages.
// Error turns and error blocks are never replayed to the model.
func HistoryToMessages(history []*Turn) []*ChatMessage {
	messages := make([]*ChatMessage, 0, len(history))
	for _, turn := range history {
		if turn == nil || turn.Role == RoleError {
			continue
		}
		content := turn.Text()
		if content == "" {
			continue
		}
		messages = append(messages, &ChatMessage{
			Role:    string(turn.Role),
			Content: content,
		})
	}
	return messages
}
