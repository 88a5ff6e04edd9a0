package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func transcriptFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRecorderWritesJSONLRecords(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	rec.Log("req-1", "hello", "world", 1500*time.Millisecond)
	rec.Log("req-2", "again", "ok", 20*time.Millisecond)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	names := transcriptFiles(t, dir)
	if len(names) != 1 {
		t.Fatalf("expected 1 transcript file, got %v", names)
	}

	f, err := os.Open(filepath.Join(dir, names[0]))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "req-1" || records[0].Prompt != "hello" || records[0].Response != "world" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].DurationMs != 1500 {
		t.Errorf("duration_ms = %d, want 1500", records[0].DurationMs)
	}
}

func TestRecorderLogAfterCloseIsNoop(t *testing.T) {
	rec, err := NewRecorder(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	rec.Log("late", "p", "r", 0) // must not panic
	if err := rec.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestRotationKeepsOnlyNewestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"transcript_1000.jsonl",
		"transcript_2000.jsonl",
		"transcript_3000.jsonl",
		"transcript_4000.jsonl",
		"unrelated.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	defer rec.Close()

	names := transcriptFiles(t, dir)
	if len(names) != MaxRotatedFiles {
		t.Fatalf("expected %d transcript files after rotation, got %v", MaxRotatedFiles, names)
	}
	for _, name := range names {
		if name == "transcript_1000.jsonl" || name == "transcript_2000.jsonl" {
			t.Errorf("oldest file %s should have been rotated away", name)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "unrelated.txt")); err != nil {
		t.Errorf("rotation must not touch unrelated files: %v", err)
	}
}
