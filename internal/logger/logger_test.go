package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, encoding string
		want            zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel},
		{"WARN", "json", zapcore.WarnLevel},
		{"nonsense", "json", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		l, err := New(tt.level, tt.encoding)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.level, tt.encoding, err)
		}
		if !l.Core().Enabled(tt.want) {
			t.Errorf("level %s should be enabled for %q", tt.want, tt.level)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Errorf("level %s should be disabled for %q", tt.want-1, tt.level)
		}
	}
}
