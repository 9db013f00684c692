package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")

	if err := AtomicWriteJSON(path, map[string]int{"n": 1}); err != nil {
		t.Fatalf("AtomicWriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Written file is not valid JSON: %v", err)
	}
	if got["n"] != 1 {
		t.Errorf("got %v, want n=1", got)
	}

	// no temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file still present after rename")
	}
}

func TestAtomicWriteJSONOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := AtomicWriteJSON(path, map[string]string{"v": "one"}); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteJSON(path, map[string]string{"v": "two"}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["v"] != "two" {
		t.Errorf("got %q, want overwrite to win", got["v"])
	}
}

func TestAcquireLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "var", "run.lock")

	release, err := AcquireLock(lockPath)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	_, err = AcquireLock(lockPath)
	if err == nil {
		t.Fatal("second acquire should fail while lock is held")
	}
	// the message is user-facing and callers surface it verbatim
	if got := strings.Count(err.Error(), "another run is in progress"); got != 1 {
		t.Errorf("contention error %q mentions the prefix %d times, want 1", err, got)
	}

	if err := release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	release2, err := AcquireLock(lockPath)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	_ = release2()
}
