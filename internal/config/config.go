package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all tunable settings for the ChatBridge MCP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chat       ChatConfig       `yaml:"chat"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// ChatConfig configures how the adapter reaches and drives the chat application.
type ChatConfig struct {
	// URL of the chat application tab to attach to or open.
	TargetURL string `yaml:"target_url"`
	// Chrome remote-debugging port to discover the control endpoint on.
	DebugPort int `yaml:"debug_port"`
	// Deadline for every blocking wait (navigation, selector waits, response poll).
	OperationTimeoutMs int `yaml:"operation_timeout_ms"`
	// Cadence of the response-container poll.
	PollIntervalMs int `yaml:"poll_interval_ms"`
	// Display model name reported by get-model.
	ModelName string `yaml:"model_name"`
	// Advertised max output tokens (the web app enforces its own limit; this is metadata only).
	MaxOutputTokens int `yaml:"max_output_tokens"`
	// DOM contract. Brittle by construction: must match the live application.
	Selectors SelectorConfig `yaml:"selectors"`
}

// SelectorConfig names the DOM elements the adapter touches.
type SelectorConfig struct {
	// Content-editable prompt region.
	Input string `yaml:"input"`
	// Enabled send control.
	Send string `yaml:"send"`
	// Transient stop/processing control shown while the app generates.
	Stop string `yaml:"stop"`
	// Ready-for-input indicator checked (best effort) after completion.
	Ready string `yaml:"ready"`
	// Repeated response-container elements, in document order.
	Response string `yaml:"response"`
	// Nested content panel inside each response container.
	Content string `yaml:"content"`
}

// TranscriptConfig controls the rotating exchange recorder.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "chatbridge-mcp",
			Version: "0.1.0",
			LogFile: "chatbridge-mcp.log",
			SSEPort: 0,
		},
		Chat: ChatConfig{
			TargetURL:          "http://localhost:3000",
			DebugPort:          9222,
			OperationTimeoutMs: 120000,
			PollIntervalMs:     500,
			ModelName:          "webchat",
			MaxOutputTokens:    8192,
			Selectors:          DefaultSelectors(),
		},
		Transcript: TranscriptConfig{
			Enabled: false,
			Dir:     "data/transcripts",
		},
	}
}

// DefaultSelectors returns the stock DOM contract for the chat application.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Input:    `div[contenteditable="true"][role="textbox"]`,
		Send:     `button[aria-label="Send message"]:not([disabled])`,
		Stop:     `button[aria-label="Stop generating"]`,
		Ready:    `button[aria-label="Send message"]`,
		Response: `div[data-role="response"]`,
		Content:  `div[data-role="markdown"]`,
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// applyDefaults backfills zero values so a sparse YAML file still yields a usable config.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Name == "" {
		c.Server.Name = def.Server.Name
	}
	if c.Server.Version == "" {
		c.Server.Version = def.Server.Version
	}
	if c.Chat.TargetURL == "" {
		c.Chat.TargetURL = def.Chat.TargetURL
	}
	if c.Chat.DebugPort <= 0 {
		c.Chat.DebugPort = def.Chat.DebugPort
	}
	if c.Chat.OperationTimeoutMs <= 0 {
		c.Chat.OperationTimeoutMs = def.Chat.OperationTimeoutMs
	}
	if c.Chat.PollIntervalMs <= 0 {
		c.Chat.PollIntervalMs = def.Chat.PollIntervalMs
	}
	if c.Chat.ModelName == "" {
		c.Chat.ModelName = def.Chat.ModelName
	}
	if c.Chat.MaxOutputTokens <= 0 {
		c.Chat.MaxOutputTokens = def.Chat.MaxOutputTokens
	}
	sel := &c.Chat.Selectors
	defSel := def.Chat.Selectors
	if sel.Input == "" {
		sel.Input = defSel.Input
	}
	if sel.Send == "" {
		sel.Send = defSel.Send
	}
	if sel.Stop == "" {
		sel.Stop = defSel.Stop
	}
	if sel.Ready == "" {
		sel.Ready = defSel.Ready
	}
	if sel.Response == "" {
		sel.Response = defSel.Response
	}
	if sel.Content == "" {
		sel.Content = defSel.Content
	}
	if c.Transcript.Dir == "" {
		c.Transcript.Dir = def.Transcript.Dir
	}
}

// Validate ensures required fields parse so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if _, err := url.Parse(c.Chat.TargetURL); err != nil {
		return fmt.Errorf("chat.target_url is not a valid URL: %w", err)
	}
	if c.Chat.DebugPort <= 0 || c.Chat.DebugPort > 65535 {
		return fmt.Errorf("chat.debug_port out of range: %d", c.Chat.DebugPort)
	}
	return nil
}

// OperationTimeout returns the per-wait deadline with a sane default.
func (c ChatConfig) OperationTimeout() time.Duration {
	if c.OperationTimeoutMs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.OperationTimeoutMs) * time.Millisecond
}

// PollInterval returns the response poll cadence with a sane default.
func (c ChatConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
