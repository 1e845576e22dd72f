package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logFile string
		format  string
		wantErr bool
	}{
		{name: "debug level, console", level: "debug"},
		{name: "info level, console", level: "info"},
		{name: "warn level, json", level: "warn", format: "json"},
		{name: "error level, console", level: "error"},
		{name: "invalid level defaults to info", level: "invalid"},
		{name: "log file", level: "info", logFile: filepath.Join(t.TempDir(), "test.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Log = nil

			err := Init(tt.level, tt.logFile, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && Log == nil {
				t.Error("Init() succeeded but Log is nil")
			}

			if Log != nil {
				_ = Log.Sync()
			}
			if tt.logFile != "" {
				_ = os.Remove(tt.logFile)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSync(t *testing.T) {
	Log, _ = zap.NewDevelopment()
	_ = Sync()

	Log = nil
	if err := Sync(); err != nil {
		t.Errorf("Sync() with nil logger = %v, want nil", err)
	}
}

func TestInitWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")

	if err := Init("info", logFile, ""); err != nil {
		t.Fatalf("Init() with log file failed: %v", err)
	}

	Named("test").Info("test message")
	_ = Sync()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}
