package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger = NewComponentLogger(logger, "stager")
	logger.Info("extracted archive", String("source", "Frieren_Ch1_v1.cbz"), Int("entries", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO stager: extracted archive") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "source=Frieren_Ch1_v1.cbz") {
		t.Fatalf("missing source attr: %q", line)
	}
	if !strings.Contains(line, "entries=3") {
		t.Fatalf("missing entries attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Warn("skipping source", Error(errors.New("zip: not a valid zip file")))
	if !strings.Contains(buf.String(), `error="zip: not a valid zip file"`) {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info record should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", String("k", "v"))
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("unexpected json: %q", buf.String())
	}
}
