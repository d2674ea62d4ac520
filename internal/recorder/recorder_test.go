package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecorderRotation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	// Create more than MaxRotatedFiles
	for i := 0; i < MaxRotatedFiles+2; i++ {
		err := r.Start("test")
		if err != nil {
			t.Fatal(err)
		}
		r.Log(Invocation{Tool: "runPrologQuery", CallID: "abc", Outcome: "ok"})
		time.Sleep(10 * time.Millisecond) // Ensure different mod times
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	// We should only have MaxRotatedFiles
	if len(entries) != MaxRotatedFiles {
		t.Errorf("expected %d files, got %d", MaxRotatedFiles, len(entries))
	}
}

func TestRecorderLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_log_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	err = r.Start("prolognerd")
	if err != nil {
		t.Fatal(err)
	}

	r.Log(Invocation{
		Tool:       "loadProgram",
		CallID:     "call-1",
		Outcome:    "error",
		DurationMS: 12,
		ErrorKinds: []string{"ingestion"},
	})
	r.Close()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 file, got %d", len(entries))
	}

	content, err := os.ReadFile(filepath.Join(tempDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}

	var decoded Invocation
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("unexpected trace format: %v\n%s", err, content)
	}
	if decoded.Tool != "loadProgram" || decoded.Outcome != "error" {
		t.Errorf("unexpected record: %+v", decoded)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled in")
	}
	if len(decoded.ErrorKinds) != 1 || decoded.ErrorKinds[0] != "ingestion" {
		t.Errorf("expected error kinds, got %v", decoded.ErrorKinds)
	}
}

func TestRecorderLogBeforeStart(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_noop_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	// Must not panic or create files.
	r.Log(Invocation{Tool: "saveSession", Outcome: "ok"})

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no trace files, got %d", len(entries))
	}
}
