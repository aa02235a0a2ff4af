package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)
	l.Warn("import %s skipped\n", "abc")
	got := buf.String()
	if !strings.Contains(got, "WARN import abc skipped") {
		t.Fatalf("got %q", got)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("nothing")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "procure.log")
	l, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(blob), "INFO hello") {
		t.Fatalf("log=%q", blob)
	}
}
