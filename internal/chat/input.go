package chat

import (
	"context"

	"chatbridge-mcp-server/internal/browser"
	"chatbridge-mcp-server/internal/config"
)

// clearInputJS wipes the focused content-editable region through editing
// commands. A raw value assignment would not fire the application's editing
// events, so the clear has to look like user input.
const clearInputJS = `() => {
	document.execCommand('selectAll', false, null);
	document.execCommand('delete', false, null);
	return true;
}`

// InputDriver injects an encoded prompt into the chat input and submits it.
type InputDriver struct {
	selectors config.SelectorConfig
}

func NewInputDriver(selectors config.SelectorConfig) *InputDriver {
	return &InputDriver{selectors: selectors}
}

// Submit clears the input surface, types the text, and clicks the enabled
// send control. The page must come from a ready session.
func (d *InputDriver) Submit(ctx context.Context, page browser.Page, text string) error {
	if err := page.WaitVisible(ctx, d.selectors.Input); err != nil {
		return interactionErr("input surface", "input %q not visible: %w", d.selectors.Input, err)
	}
	if err := page.Focus(ctx, d.selectors.Input); err != nil {
		return interactionErr("input surface", "focus %q: %w", d.selectors.Input, err)
	}
	if _, err := page.Eval(ctx, clearInputJS); err != nil {
		return interactionErr("input surface", "clear existing content: %w", err)
	}
	if err := page.InsertText(ctx, text); err != nil {
		return interactionErr("input surface", "insert prompt text: %w", err)
	}

	if err := page.WaitVisible(ctx, d.selectors.Send); err != nil {
		return interactionErr("send control", "send control %q not available: %w", d.selectors.Send, err)
	}
	if err := page.Click(ctx, d.selectors.Send); err != nil {
		return interactionErr("send control", "click %q: %w", d.selectors.Send, err)
	}
	return nil
}
