package utils

import "testing"

func TestNewLoggerModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "PRODUCTION", ""} {
		l := NewLogger(mode)
		if l == nil {
			t.Fatalf("NewLogger(%q) returned nil", mode)
		}
		l.With("window", "2024-01").Debug("window %s ready", "2024-01")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	l := NewNopLogger()
	l.Info("%d records", 3)
	l.Warn("%s", "retrying")
	l.Error("%v", nil)
	l.Sync()
}
