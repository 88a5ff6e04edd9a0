package mcp

import (
	"context"
	"fmt"

	"chatbridge-mcp-server/internal/browser"
	"chatbridge-mcp-server/internal/chat"
)

func getStringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// ChatCompleteTool drives one full prompt/response exchange.
type ChatCompleteTool struct {
	handler *chat.Handler
}

func (t *ChatCompleteTool) Name() string { return "chat-complete" }
func (t *ChatCompleteTool) Description() string {
	return `Send a prompt to the bridged chat web application and return its reply.

The prompt is injected into the application's chat input through an attached
debuggable browser, so the browser must be running with remote debugging
enabled and the application must be reachable at the configured URL.

The first call attaches (or navigates) a page and may take several seconds;
later calls reuse the session. Requests are processed one at a time - do not
issue concurrent chat-complete calls.

Returns: {text} - the full generated reply.`
}
func (t *ChatCompleteTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "User prompt to send",
			},
			"system": map[string]interface{}{
				"type":        "string",
				"description": "Optional system prompt prepended to the conversation",
			},
		},
		"required": []string{"prompt"},
	}
}
func (t *ChatCompleteTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	prompt := getStringArg(args, "prompt")
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	system := getStringArg(args, "system")

	chunks, errs := t.handler.CreateMessage(ctx, system, []chat.Turn{chat.UserTurn(prompt)})
	text := ""
	for chunk := range chunks {
		if tc, ok := chunk.(chat.TextChunk); ok {
			text += tc.Text
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": text}, nil
}

// GetModelTool reports static model metadata. No browser interaction.
type GetModelTool struct {
	handler *chat.Handler
}

func (t *GetModelTool) Name() string { return "get-model" }
func (t *GetModelTool) Description() string {
	return `Report the display model name and static capability metadata of the bridged
chat application. Purely local; never touches the browser.

Returns: {id, info: {context_window, max_output_tokens, supports_*}}.`
}
func (t *GetModelTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *GetModelTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	id, info := t.handler.Model()
	return map[string]interface{}{"id": id, "info": info}, nil
}

// CountTokensTool estimates tokens for a text.
type CountTokensTool struct{}

func (t *CountTokensTool) Name() string { return "count-tokens" }
func (t *CountTokensTool) Description() string {
	return `Estimate the token count of a text as ceil(characters/4).

This is a rough character-based approximation; the bridged application
exposes no tokenizer, so exact accounting is impossible.

Returns: {tokens}.`
}
func (t *CountTokensTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to estimate",
			},
		},
		"required": []string{"text"},
	}
}
func (t *CountTokensTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	text := getStringArg(args, "text")
	tokens := chat.CountTokens([]chat.ContentBlock{chat.TextBlock(text)})
	return map[string]interface{}{"tokens": tokens}, nil
}

// SessionStatusTool reports the session lifecycle state.
type SessionStatusTool struct {
	sessions *browser.SessionManager
}

func (t *SessionStatusTool) Name() string { return "session-status" }
func (t *SessionStatusTool) Description() string {
	return `Report the browser session state (uninitialized | initializing | ready |
failed) and whether the attached handles currently pass liveness probes.

Returns: {state, live}.`
}
func (t *SessionStatusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *SessionStatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"state": t.sessions.State().String(),
		"live":  t.sessions.Live(),
	}, nil
}

// ResetSessionTool forces a teardown so the next call reinitializes.
type ResetSessionTool struct {
	sessions *browser.SessionManager
}

func (t *ResetSessionTool) Name() string { return "reset-session" }
func (t *ResetSessionTool) Description() string {
	return `Detach from the browser and clear session state. The next chat-complete
call runs a fresh discovery+attach sequence.

USE WHEN the session looks wedged (e.g. the application was reloaded or
logged out underneath the adapter). The browser itself is never closed.

Returns: {reset: true}.`
}
func (t *ResetSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ResetSessionTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	t.sessions.Cleanup()
	return map[string]interface{}{"reset": true}, nil
}
