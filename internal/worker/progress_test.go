package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgress_Update(t *testing.T) {
	p := NewProgress(10, "", false)

	p.Update(5, 10, 0)

	if p.completed != 5 {
		t.Errorf("Expected completed=5, got %d", p.completed)
	}
	if p.total != 10 {
		t.Errorf("Expected total=10, got %d", p.total)
	}
	if p.unit != "grids" {
		t.Errorf("Expected default unit 'grids', got %q", p.unit)
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(10, "jobs", true)
	p.SetOutput(&buf)
	p.startTime = time.Now().Add(-10 * time.Second)

	p.Update(5, 10, 1)

	output := buf.String()

	for _, want := range []string{"█", "5/10 jobs", "(1 failed)", "jobs/sec", "ETA:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, "Done in") {
		t.Errorf("Unfinished batch reported done: %s", output)
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(3, "", true)
	p.SetOutput(&buf)
	p.startTime = time.Now().Add(-3 * time.Second)

	p.Update(3, 3, 0)
	buf.Reset()

	p.Done()

	output := buf.String()
	if !strings.Contains(output, "Done in") {
		t.Errorf("Expected 'Done in' in output, got: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Expected output to end with newline")
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(0, "", true)
	p.SetOutput(&buf)
	p.Update(0, 0, 0)

	if !strings.Contains(buf.String(), "0/0 grids") {
		t.Errorf("Expected '0/0 grids', got: %s", buf.String())
	}
}

func TestProgress_Summary(t *testing.T) {
	p := NewProgress(10, "", false)
	p.startTime = time.Now().Add(-10 * time.Second)

	p.Update(10, 10, 2)

	summary := p.Summary()

	if !strings.Contains(summary, "8/10 grids") {
		t.Errorf("Expected '8/10 grids' (successful) in summary, got: %s", summary)
	}
	if !strings.Contains(summary, "2 failed") {
		t.Errorf("Expected '2 failed' in summary, got: %s", summary)
	}
}

func TestProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(10, "", false)
	p.SetOutput(&buf)

	p.Update(5, 10, 0)

	if buf.Len() != 0 {
		t.Errorf("Expected no output when disabled, got: %s", buf.String())
	}
}

func TestProgress_Callback(t *testing.T) {
	p := NewProgress(10, "", false)

	p.Callback()(5, 10, 1)

	if p.completed != 5 || p.failed != 1 {
		t.Errorf("Expected completed=5 failed=1, got %d/%d", p.completed, p.failed)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		expected string
		duration time.Duration
	}{
		{duration: 30 * time.Second, expected: "30s"},
		{duration: 90 * time.Second, expected: "1m30s"},
		{duration: 65 * time.Minute, expected: "1h5m"},
		{duration: 2*time.Hour + 30*time.Minute, expected: "2h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.expected {
				t.Errorf("formatDuration(%v) = %s, want %s", tt.duration, got, tt.expected)
			}
		})
	}
}
