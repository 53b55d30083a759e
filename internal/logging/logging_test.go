package logging

import "testing"

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "JSON"} {
		logger, err := New(format, "debug")
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		_ = logger.Sync()
	}
	if _, err := New("xml", ""); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := New("json", "loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}
