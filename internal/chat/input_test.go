package chat

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"chatbridge-mcp-server/internal/config"
)

func TestSubmitOperationOrder(t *testing.T) {
	sel := config.DefaultSelectors()
	page := newScriptedPage("http://chat.test/")
	page.setVisible(sel.Input, true)
	page.setVisible(sel.Send, true)

	if err := NewInputDriver(sel).Submit(context.Background(), page, "hello there"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	want := []string{
		"wait-visible:" + sel.Input,
		"focus:" + sel.Input,
		"clear",
		"insert",
		"wait-visible:" + sel.Send,
		"click:" + sel.Send,
	}
	if got := page.actionLog(); !reflect.DeepEqual(got, want) {
		t.Errorf("action order = %v, want %v", got, want)
	}
	if len(page.inserted) != 1 || page.inserted[0] != "hello there" {
		t.Errorf("inserted = %v, want the submitted text", page.inserted)
	}
}

func TestSubmitFailsWhenInputSurfaceMissing(t *testing.T) {
	sel := config.DefaultSelectors()
	page := newScriptedPage("http://chat.test/")

	err := NewInputDriver(sel).Submit(context.Background(), page, "x")
	var ie *InteractionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InteractionError, got %v", err)
	}
	if ie.Op != "input surface" {
		t.Errorf("Op = %q, want %q", ie.Op, "input surface")
	}
}

func TestSubmitFailsWhenSendControlUnavailable(t *testing.T) {
	sel := config.DefaultSelectors()
	page := newScriptedPage("http://chat.test/")
	page.setVisible(sel.Input, true)
	// Send control stays disabled (selector matches nothing).

	err := NewInputDriver(sel).Submit(context.Background(), page, "x")
	var ie *InteractionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InteractionError, got %v", err)
	}
	if ie.Op != "send control" {
		t.Errorf("Op = %q, want %q", ie.Op, "send control")
	}
	// The prompt was typed before the failure; nothing was clicked.
	for _, action := range page.actionLog() {
		if action == "click:"+sel.Send {
			t.Error("send must not be clicked when the control never enables")
		}
	}
}
