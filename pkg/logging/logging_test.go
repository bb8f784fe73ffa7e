package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fileguard-project/fileguard/pkg/errclass"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LevelInfo)
	if logger.level != LevelInfo {
		t.Errorf("expected level %s, got %s", LevelInfo, logger.level)
	}
}

func TestLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelDebug)
	logger.SetOutput(&buf)

	logger.Debug("test message", map[string]any{"key": "value"})

	output := buf.String()
	if !strings.Contains(output, `"level":"debug"`) {
		t.Errorf("expected debug level in output, got: %s", output)
	}
	if !strings.Contains(output, `"message":"test message"`) {
		t.Errorf("expected message in output, got: %s", output)
	}
}

func TestLogger_DebugFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo)
	logger.SetOutput(&buf)

	logger.Debug("test message")

	if buf.Len() > 0 {
		t.Errorf("expected no output for debug when level is info, got: %s", buf.String())
	}
}

func TestLogger_WarnLevelFiltersInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn)
	logger.SetOutput(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info should be filtered at warn level, got: %s", output)
	}
	if !strings.Contains(output, `"level":"warn"`) {
		t.Errorf("expected warn level in output, got: %s", output)
	}
}

func TestLogger_ErrorErrIncludesCode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelError)
	logger.SetOutput(&buf)

	logger.ErrorErr("restore failed", errclass.ErrIOFailure.Wrap(errors.New("disk full")))

	output := buf.String()
	if !strings.Contains(output, `"error":"E_IO_FAILURE: disk full"`) {
		t.Errorf("expected error field in output, got: %s", output)
	}
	if !strings.Contains(output, `"code":"E_IO_FAILURE"`) {
		t.Errorf("expected code field in output, got: %s", output)
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo)
	logger.SetOutput(&buf)

	loggerWithFields := logger.WithFields(map[string]any{"path": "/tmp/x"})
	loggerWithFields.Info("captured")

	output := buf.String()
	if !strings.Contains(output, `"path":"/tmp/x"`) {
		t.Errorf("expected path field in output, got: %s", output)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo)
	logger.SetOutput(&buf)

	logger.Info("test message", map[string]any{"count": 42})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v, got: %s", err, buf.String())
	}
	if entry.Message != "test message" {
		t.Errorf("expected message 'test message', got: %s", entry.Message)
	}
	if entry.Fields["count"].(float64) != 42 {
		t.Errorf("expected count 42, got: %v", entry.Fields["count"])
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo)
	logger.SetOutput(&buf)
	logger.SetFormat(FormatText)

	logger.Info("restored", map[string]any{"kind": "dir", "depth": 1})

	output := buf.String()
	if !strings.Contains(output, "INFO  restored depth=1 kind=dir") {
		t.Errorf("unexpected text output: %s", output)
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("nothing to see")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); !errors.Is(err, errclass.ErrConfigInvalid) {
		t.Errorf("expected E_CONFIG_INVALID, got %v", err)
	}
}

func TestGlobalLogger(t *testing.T) {
	old := Global()
	defer SetGlobal(old)

	var buf bytes.Buffer
	testLogger := NewLogger(LevelDebug)
	testLogger.SetOutput(&buf)
	SetGlobal(testLogger)

	Global().Debug("global debug message")

	if !strings.Contains(buf.String(), `"message":"global debug message"`) {
		t.Errorf("expected global message in output, got: %s", buf.String())
	}
}
