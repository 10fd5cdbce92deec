package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestCounter_CompletePrintsFinalCount(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.ScanProgress(1)
	c.ScanComplete(1234)

	out := buf.String()
	if !strings.Contains(out, "Files scanned: 1,234\n") {
		t.Errorf("Expected final line with grouped count, got %q", out)
	}
	if c.Current() != 1234 {
		t.Errorf("Expected current 1234, got %d", c.Current())
	}
}

func TestCounter_Throttles(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.interval = time.Hour

	for i := 1; i <= 100; i++ {
		c.ScanProgress(i)
	}

	// Only the first update passes the throttle.
	if n := strings.Count(buf.String(), "Files scanned"); n != 1 {
		t.Errorf("Expected 1 render, got %d", n)
	}
	if c.Current() != 100 {
		t.Errorf("Expected current 100, got %d", c.Current())
	}
}

func TestCounter_Disabled(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.Disable()

	c.ScanProgress(5)
	c.ScanComplete(5)

	if buf.Len() != 0 {
		t.Errorf("Disabled counter should not write, got %q", buf.String())
	}
	if c.Current() != 5 {
		t.Errorf("Disabled counter should still track the count, got %d", c.Current())
	}
}

func TestLine(t *testing.T) {
	if got := Line(1000000); got != "Files scanned: 1,000,000" {
		t.Errorf("Unexpected line %q", got)
	}
}
