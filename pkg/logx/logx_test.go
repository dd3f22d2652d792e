package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger not IsZero")
	}
	l.Info("dropped", String("k", "v"))
	l.With(Int("n", 1)).Error("dropped", Err(errors.New("x")), nil)
	if Nop().IsZero() {
		t.Fatal("Nop reported zero")
	}
}

func TestWriterFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "delivery"))
	l.Warn("message buffered", Int("pending", 3), Err(nil))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["comp"] != "delivery" || got["pending"] != float64(3) || got["level"] != "warn" {
		t.Fatalf("entry = %v", got)
	}
	if _, ok := got["err"]; ok {
		t.Fatal("nil error was logged")
	}
	if c, _ := got["caller"].(string); !strings.HasPrefix(c, "logx_test.go:") {
		t.Fatalf("caller = %q", got["caller"])
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriter(&buf, "info").With(String("a", "1"))
	_ = base.With(String("b", "2"))
	base.Info("x")
	if strings.Contains(buf.String(), `"b"`) {
		t.Fatalf("derived field leaked: %s", buf.String())
	}
}

func TestServiceApplySwapsLevelAndFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	svc, log := newService(&console, Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()
	comp := log.With(String("comp", "bridge"))

	comp.Debug("hidden")
	comp.Info("shown")

	if err := svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	comp.Debug("now visible")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "now visible") {
		t.Fatalf("file log = %s", out)
	}
	if console.Len() != 0 {
		t.Fatalf("console written without console sink: %s", console.String())
	}
}

func TestServiceFallsBackToConsole(t *testing.T) {
	var console bytes.Buffer
	svc, log := newService(&console, Config{Level: "info"})
	defer svc.Close()
	log.Info("fallback line")
	if !strings.Contains(console.String(), "fallback line") {
		t.Fatalf("console = %q", console.String())
	}

	err := svc.Apply(Config{File: FileConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "missing", "x.log")}})
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
	log.Info("still logging")
	if !strings.Contains(console.String(), "still logging") {
		t.Fatal("logging stopped after failed Apply")
	}
}
