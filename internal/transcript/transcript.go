// Package transcript keeps a rotating on-disk record of prompt/response
// exchanges for offline debugging of the bridged chat application.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// MaxRotatedFiles bounds how many old transcript files are kept.
	MaxRotatedFiles = 3
	filePrefix      = "transcript_"
)

// Record is a single completed exchange.
type Record struct {
	Timestamp  time.Time `json:"ts"`
	RequestID  string    `json:"request_id"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
}

// Recorder appends JSONL records to a per-run transcript file.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	dir     string
}

// NewRecorder creates the transcript directory, rotates old files, and opens
// a fresh transcript for this run.
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		dir = "data/transcripts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	r := &Recorder{dir: dir}
	if err := r.rotate(); err != nil {
		return nil, fmt.Errorf("rotate transcripts: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s%d.jsonl", filePrefix, time.Now().UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r.file = f
	r.encoder = json.NewEncoder(f)
	return r, nil
}

// Log appends one exchange. Write problems are swallowed; the transcript is
// diagnostics, never part of the request path.
func (r *Recorder) Log(requestID, prompt, response string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}
	_ = r.encoder.Encode(Record{
		Timestamp:  time.Now(),
		RequestID:  requestID,
		Prompt:     prompt,
		Response:   response,
		DurationMs: duration.Milliseconds(),
	})
}

// Close flushes and closes the current transcript file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.encoder = nil
	return err
}

// rotate keeps only the newest MaxRotatedFiles transcripts.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".jsonl") {
			names = append(names, name)
		}
	}

	// Timestamped names sort chronologically.
	sort.Strings(names)
	for len(names) > MaxRotatedFiles-1 {
		if err := os.Remove(filepath.Join(r.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
