package chat

import "testing"

func TestEncodePromptSystemAndTurns(t *testing.T) {
	got := EncodePrompt("Be terse.", []Turn{
		UserTurn("hi"),
		{Role: RoleAssistant, Content: []ContentBlock{TextBlock("yo")}},
	})
	want := "Be terse.\n\n---\n\nuser: hi\n\nassistant: yo"
	if got != want {
		t.Errorf("EncodePrompt = %q, want %q", got, want)
	}
}

func TestEncodePromptWithoutSystem(t *testing.T) {
	got := EncodePrompt("", []Turn{UserTurn("hello")})
	if got != "user: hello" {
		t.Errorf("EncodePrompt = %q, want %q", got, "user: hello")
	}
}

func TestEncodePromptEmptySystemAddsNoSeparator(t *testing.T) {
	got := EncodePrompt("", []Turn{UserTurn("x")})
	if got[0] == '\n' {
		t.Errorf("empty system prompt must not leave a separator prefix: %q", got)
	}
}

func TestEncodePromptMultiBlockTurn(t *testing.T) {
	turn := Turn{Role: RoleUser, Content: []ContentBlock{
		TextBlock("first"),
		TextBlock("second"),
	}}
	got := EncodePrompt("", []Turn{turn})
	want := "user: first\nsecond"
	if got != want {
		t.Errorf("EncodePrompt = %q, want %q", got, want)
	}
}

func TestEncodePromptNonTextBlockPlaceholder(t *testing.T) {
	turn := Turn{Role: RoleUser, Content: []ContentBlock{
		{Kind: "image", Text: "ignored"},
	}}
	got := EncodePrompt("", []Turn{turn})
	want := "user: [Unsupported image]"
	if got != want {
		t.Errorf("EncodePrompt = %q, want %q", got, want)
	}
}

func TestEncodePromptTrimsTrailingWhitespace(t *testing.T) {
	got := EncodePrompt("", []Turn{UserTurn("hi \t\n")})
	if got != "user: hi" {
		t.Errorf("EncodePrompt = %q, want %q", got, "user: hi")
	}
}
