package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLogRotation(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "export.log")

	// 1MB is the smallest size lumberjack supports
	log, err := New("debug", FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAgeDays: 1,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	longMessage := strings.Repeat("x", 200)
	for i := 0; i < 8000; i++ {
		log.Info(longMessage, zap.Int("object_id", i))
	}
	_ = log.Sync()

	files, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}

	rotated := 0
	for _, f := range files {
		name := f.Name()
		if name == "export.log" {
			continue
		}
		if strings.HasPrefix(name, "export-20") && strings.HasSuffix(name, ".log") {
			rotated++
		}
	}
	if rotated == 0 {
		t.Errorf("no rotated files in %v", files)
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"INFO", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "levels.log")
			if err := InitWithFileConfig(tt.level, FileConfig{Path: logFile, MaxSizeMB: 10}, nil); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Log.Debug("debug message")
			Log.Info("info message")
			Log.Warn("warn message")
			Log.Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			levels := map[string]bool{}
			for _, line := range bytes.Split(bytes.TrimSpace(content), []byte("\n")) {
				var entry struct {
					Level string `json:"level"`
				}
				if err := json.Unmarshal(line, &entry); err != nil {
					t.Fatalf("line %q is not JSON: %v", line, err)
				}
				levels[entry.Level] = true
			}

			for _, exp := range tt.expected {
				if !levels[exp] {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if levels[exc] {
					t.Errorf("unexpected %s in log output for level %q", exc, tt.level)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := InitWithFileConfig("verbose", FileConfig{}, nil); err == nil {
		t.Error("expected InitWithFileConfig to reject unknown level")
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", FileConfig{}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.Info("package written", zap.Int("bytes", 42))
	_ = log.Sync()

	out := buf.String()
	if !strings.Contains(out, "package written") || !strings.Contains(out, `"bytes": 42`) {
		t.Errorf("unexpected console output %q", out)
	}
}

func TestNoSinks(t *testing.T) {
	log, err := New("debug", FileConfig{}, nil)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without sinks should be a no-op")
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/mr3mf.log")

	if cfg.Path != "/tmp/mr3mf.log" {
		t.Errorf("expected path /tmp/mr3mf.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 50 || cfg.MaxBackups != 3 || cfg.MaxAgeDays != 7 {
		t.Errorf("unexpected rotation settings %+v", cfg)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}
