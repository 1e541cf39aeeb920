package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
homeassistant:
  url: http://hass.local:8123
  token: abc123
  monitoring:
    enabled: true
terminal:
  port: /dev/ttyS0
  flow: true
general:
  show_help: true
  refresh_interval: 2s
layout:
  - name: Lights
    entities:
      - switch.kitchen
      - entity: sensor.temp
        name: Temperature
        units: "°C"
      - "<hr>"
      - "<label Downstairs>"
      - entity: "<label>"
        name: Fallback
      - "<template {{ states.sun }}>"
  - entities:
      - switch.kitchen
      - light.hall
`

const sampleTOML = `
[homeassistant]
url = "https://hass.example.com"
token = "abc123"
transport = "websocket"

[terminal]
port = "local"
baud = 19200

[[layout]]
name = "Main"
entities = ["switch.kitchen", { entity = "sensor.temp", units = "C" }, "<hr>"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeAssistant.URL != "http://hass.local:8123" {
		t.Errorf("URL = %q", cfg.HomeAssistant.URL)
	}
	if !cfg.HomeAssistant.Monitoring.Enabled || cfg.HomeAssistant.Monitoring.Port != DefaultMonitoringPort {
		t.Errorf("Monitoring = %+v, want enabled on %d", cfg.HomeAssistant.Monitoring, DefaultMonitoringPort)
	}
	if cfg.Terminal.Port != "/dev/ttyS0" || cfg.Terminal.Baud != DefaultBaud || !cfg.Terminal.Flow {
		t.Errorf("Terminal = %+v", cfg.Terminal)
	}
	if cfg.General.Name != DefaultName {
		t.Errorf("Name = %q, want %q", cfg.General.Name, DefaultName)
	}
	if cfg.General.RefreshInterval.Duration != 2*time.Second {
		t.Errorf("RefreshInterval = %v, want 2s", cfg.General.RefreshInterval)
	}
	if cfg.HomeAssistant.Transport != "rest" {
		t.Errorf("Transport = %q, want rest", cfg.HomeAssistant.Transport)
	}

	if len(cfg.Layout) != 2 {
		t.Fatalf("len(Layout) = %d, want 2", len(cfg.Layout))
	}
	if cfg.Layout[1].Name != "Tab 2" {
		t.Errorf("unnamed page = %q, want Tab 2", cfg.Layout[1].Name)
	}

	specs := cfg.Layout[0].Specs()
	want := []WidgetSpec{
		{Kind: WidgetEntity, EntityID: "switch.kitchen"},
		{Kind: WidgetEntity, EntityID: "sensor.temp", Name: "Temperature", Units: "°C"},
		{Kind: WidgetRule},
		{Kind: WidgetLabel, Text: "Downstairs"},
		{Kind: WidgetLabel, Text: "Fallback", Name: "Fallback"},
		{Kind: WidgetTemplate, Text: "{{ states.sun }}"},
	}
	if len(specs) != len(want) {
		t.Fatalf("len(specs) = %d, want %d", len(specs), len(want))
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Errorf("spec[%d] = %+v, want %+v", i, specs[i], want[i])
		}
	}
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.toml", sampleTOML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeAssistant.Transport != "websocket" {
		t.Errorf("Transport = %q, want websocket", cfg.HomeAssistant.Transport)
	}
	if cfg.Terminal.Port != "local" || cfg.Terminal.Baud != 19200 {
		t.Errorf("Terminal = %+v", cfg.Terminal)
	}

	specs := cfg.Layout[0].Specs()
	if len(specs) != 3 {
		t.Fatalf("len(specs) = %d, want 3", len(specs))
	}
	if specs[1].EntityID != "sensor.temp" || specs[1].Units != "C" {
		t.Errorf("spec[1] = %+v", specs[1])
	}
	if specs[2].Kind != WidgetRule {
		t.Errorf("spec[2].Kind = %v, want rule", specs[2].Kind)
	}
}

func TestLoad_TokenFromEnvironment(t *testing.T) {
	t.Setenv(TokenEnvVar, "from-env")

	cfg, err := Load(writeFile(t, "config.yaml", "homeassistant:\n  url: http://hass.local:8123\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HomeAssistant.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.HomeAssistant.Token)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"missing url", "homeassistant:\n  token: x\n", "homeassistant.url"},
		{"bad url", "homeassistant:\n  url: hass.local\n  token: x\n", "homeassistant.url"},
		{"missing token", "homeassistant:\n  url: http://hass.local\n", "homeassistant.token"},
		{"bad transport", "homeassistant:\n  url: http://hass.local\n  token: x\n  transport: mqtt\n", "homeassistant.transport"},
		{"negative baud", "homeassistant:\n  url: http://hass.local\n  token: x\nterminal:\n  baud: -1\n", "terminal.baud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load() error = %v, want ErrInvalid", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Errorf("Load() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	content := "homeassistant:\n  url: http://hass.local\n  token: x\ngeneral:\n  refresh_interval: soon\n"
	if _, err := Load(writeFile(t, "config.yaml", content)); err == nil {
		t.Error("Load() with an invalid duration should fail")
	}
}

func TestWidgetEntry_Spec(t *testing.T) {
	tests := []struct {
		entry WidgetEntry
		want  WidgetSpec
	}{
		{WidgetEntry{Entity: "<hr>"}, WidgetSpec{Kind: WidgetRule}},
		{WidgetEntry{Entity: "<hr style=double>"}, WidgetSpec{Kind: WidgetRule}},
		{WidgetEntry{Entity: "<label  Spaced  >"}, WidgetSpec{Kind: WidgetLabel, Text: "Spaced"}},
		{WidgetEntry{Entity: "<template>", Name: "T"}, WidgetSpec{Kind: WidgetTemplate, Text: "T", Name: "T"}},
		{WidgetEntry{Entity: "<label"}, WidgetSpec{Kind: WidgetEntity, EntityID: "<label"}},
		{WidgetEntry{Entity: " switch.a ", Name: "A"}, WidgetSpec{Kind: WidgetEntity, EntityID: "switch.a", Name: "A"}},
	}

	for _, tt := range tests {
		if got := tt.entry.Spec(); got != tt.want {
			t.Errorf("Spec(%+v) = %+v, want %+v", tt.entry, got, tt.want)
		}
	}
}

func TestConfig_EntityIDs(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	ids := cfg.EntityIDs()
	want := []string{"switch.kitchen", "sensor.temp", "light.hall"}
	if len(ids) != len(want) {
		t.Fatalf("EntityIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("EntityIDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestWatch(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the directory are ignored
	_ = os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0600)
	if err := os.WriteFile(path, []byte(sampleYAML+"\n"), 0600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("onChange was not called")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
