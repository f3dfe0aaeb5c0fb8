package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func newColorLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Colorize: true, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WARN)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("Messages below WARN were written:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("Missing WARN line:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("Missing ERROR line:\n%s", out)
	}
}

func TestNoColorWhenDisabled(t *testing.T) {
	l, buf := newBufferLogger(DEBUG)
	l.Infof("plain")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("Expected no escape codes, got %q", buf.String())
	}
}

func TestColorize(t *testing.T) {
	l, buf := newColorLogger(DEBUG)
	l.Errorf("coloured")

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("Expected escape codes, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{"INFO", INFO, true},
		{" warning ", WARN, true},
		{"Error", ERROR, true},
		{"fatal", FATAL, true},
		{"", INFO, false},
		{"verbose", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAddFile(t *testing.T) {
	l, buf := newColorLogger(INFO)

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	if err := l.AddFile(path); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	l.Infof("hello %s", "file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading log file: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] hello file") {
		t.Errorf("Log file missing line:\n%s", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Errorf("Log file should not contain colour codes:\n%s", data)
	}
	if !strings.Contains(buf.String(), "hello file") {
		t.Errorf("Console output missing line:\n%s", buf.String())
	}
}

func TestFatalExits(t *testing.T) {
	l, buf := newBufferLogger(INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("fatal %s", "stop")
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] fatal stop") {
		t.Errorf("Missing FATAL line:\n%s", buf.String())
	}
}

func TestSetLevelOnDefaultLogger(t *testing.T) {
	l := GetLogger()
	l.mu.Lock()
	prev := l.level
	l.mu.Unlock()
	t.Cleanup(func() { SetLevel(prev) })

	SetLevel(ERROR)
	if GetLogger() != l {
		t.Fatal("GetLogger returned a different logger")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level != ERROR {
		t.Errorf("Expected ERROR, got %v", l.level)
	}
}
