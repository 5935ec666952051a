package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{125 * time.Second, "2m5.0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestOutput(t *testing.T) {
	v := map[string]any{"state": "connected", "items": 2}

	var buf bytes.Buffer
	if err := Output(&buf, FormatJSON, v); err != nil {
		t.Fatalf("Output json error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["state"] != "connected" {
		t.Errorf("state = %v", got["state"])
	}

	buf.Reset()
	if err := Output(&buf, FormatYAML, v); err != nil {
		t.Fatalf("Output yaml error: %v", err)
	}
	if !strings.Contains(buf.String(), "state: connected") {
		t.Errorf("yaml output = %q", buf.String())
	}

	if err := Output(&buf, "xml", v); err == nil {
		t.Error("Output accepted xml")
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatYAML, "yaml": FormatYAML, "json": FormatJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("table"); err == nil {
		t.Error("ParseOutputFormat accepted table")
	}
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &Printer{Out: &out, Err: &errOut}

	p.Success("saved %s", "dev")
	p.Info("hello")
	p.Warn("careful")
	p.Error("boom")
	p.Debug("hidden")

	if got := out.String(); got != "✓ saved dev\nℹ hello\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "⚠ careful\nError: boom\n" {
		t.Errorf("stderr = %q", got)
	}

	p.Verbose = true
	p.Debug("shown %d", 1)
	if !strings.HasSuffix(errOut.String(), "[verbose] shown 1\n") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestPanel_Render(t *testing.T) {
	p := Panel{
		Styles:   NewStyles(DefaultTheme),
		Title:    "rtcall",
		Status:   "connected",
		Fields:   []Field{{"session", "sess_1"}, {"state", "connected"}},
		Lines:    []string{"one", "two", "three"},
		MaxLines: 2,
		Width:    40,
	}
	out := p.Render()
	for _, want := range []string{"rtcall", "[connected]", "session", "sess_1", "two", "three"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "one") {
		t.Errorf("panel kept lines beyond MaxLines:\n%s", out)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("hello world", 5); got != "hello" {
		t.Errorf("truncateString = %q", got)
	}
	if got := truncateString("你好世界", 4); got != "你好" {
		t.Errorf("truncateString wide = %q", got)
	}
	if got := truncateString("abc", 0); got != "" {
		t.Errorf("truncateString zero = %q", got)
	}
}

func TestLoadSession(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "session.yaml")
	os.WriteFile(yamlPath, []byte("voice: verse\ninstructions: Be brief.\nmax_conversation_items: 5\n"), 0o644)

	base := openairealtime.SessionConfig{Temperature: 1.0}
	cfg, err := LoadSession(yamlPath, base)
	if err != nil {
		t.Fatalf("LoadSession yaml error: %v", err)
	}
	if cfg.Voice != "verse" || cfg.Instructions != "Be brief." || cfg.MaxConversationItems != 5 {
		t.Errorf("session = %+v", cfg)
	}
	if cfg.Temperature != 1.0 {
		t.Errorf("Temperature = %v, want base value kept", cfg.Temperature)
	}
	if cfg.Model != openairealtime.DefaultModel {
		t.Errorf("Model = %q, want default", cfg.Model)
	}

	jsonPath := filepath.Join(dir, "session.json")
	os.WriteFile(jsonPath, []byte(`{"voice":"ash","temperature":0.7}`), 0o644)
	cfg, err = LoadSession(jsonPath, openairealtime.SessionConfig{})
	if err != nil {
		t.Fatalf("LoadSession json error: %v", err)
	}
	if cfg.Voice != "ash" || cfg.Temperature != 0.7 {
		t.Errorf("session = %+v", cfg)
	}

	badPath := filepath.Join(dir, "hot.yaml")
	os.WriteFile(badPath, []byte("temperature: 3\n"), 0o644)
	if _, err := LoadSession(badPath, openairealtime.SessionConfig{}); err == nil {
		t.Error("LoadSession accepted temperature 3")
	}

	if _, err := LoadSession(filepath.Join(dir, "missing.yaml"), base); err == nil {
		t.Error("LoadSession accepted a missing file")
	}
}

func TestDecode_Fallback(t *testing.T) {
	var v struct {
		Voice string `json:"voice" yaml:"voice"`
	}
	if err := Decode([]byte(`{"voice": "coral"}`), "session.conf", &v); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if v.Voice != "coral" {
		t.Errorf("Voice = %q", v.Voice)
	}
	if err := Decode([]byte("voice: [\n"), "session.conf", &v); err == nil {
		t.Error("Decode accepted garbage")
	}
}
