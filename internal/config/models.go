package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole dashboard configuration file
type Config struct {
	HomeAssistant HomeAssistant `yaml:"homeassistant" toml:"homeassistant"`
	Terminal      Terminal      `yaml:"terminal" toml:"terminal"`
	General       General       `yaml:"general" toml:"general"`
	Layout        []Page        `yaml:"layout" toml:"layout"`
}

// HomeAssistant describes how to reach the instance
type HomeAssistant struct {
	URL        string     `yaml:"url" toml:"url"`
	Token      string     `yaml:"token" toml:"token"`
	Transport  string     `yaml:"transport" toml:"transport"` // rest | websocket
	Monitoring Monitoring `yaml:"monitoring" toml:"monitoring"`
}

// Monitoring configures the optional status endpoint
type Monitoring struct {
	Enabled   bool `yaml:"enabled" toml:"enabled"`
	Port      int  `yaml:"port" toml:"port"`
	Advertise bool `yaml:"advertise" toml:"advertise"` // Register the endpoint over mDNS
}

// Terminal selects the display device
type Terminal struct {
	Port string `yaml:"port" toml:"port"` // Serial device, or "local" for this TTY
	Baud int    `yaml:"baud" toml:"baud"`
	Flow bool   `yaml:"flow" toml:"flow"` // XON/XOFF
}

// General holds dashboard-wide settings
type General struct {
	Name            string   `yaml:"name" toml:"name"`
	ShowHelp        bool     `yaml:"show_help" toml:"show_help"`
	RefreshInterval Duration `yaml:"refresh_interval" toml:"refresh_interval"`
}

// Page is one tab of widgets
type Page struct {
	Name     string        `yaml:"name" toml:"name"`
	Entities []WidgetEntry `yaml:"entities" toml:"entities"`
}

// WidgetEntry is one layout item as written in the file: either a bare
// string or a mapping with entity/name/units keys
type WidgetEntry struct {
	Entity string `yaml:"entity" toml:"entity"`
	Name   string `yaml:"name" toml:"name"`
	Units  string `yaml:"units" toml:"units"`
}

// UnmarshalYAML accepts both the scalar and the mapping form
func (w *WidgetEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*w = WidgetEntry{Entity: node.Value}
		return nil
	}

	type plain WidgetEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("line %d: invalid layout entry: %w", node.Line, err)
	}
	*w = WidgetEntry(p)
	return nil
}

// UnmarshalTOML accepts both a string and an inline table
func (w *WidgetEntry) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*w = WidgetEntry{Entity: v}
		return nil
	case map[string]any:
		entry := WidgetEntry{}
		for key, dst := range map[string]*string{"entity": &entry.Entity, "name": &entry.Name, "units": &entry.Units} {
			raw, ok := v[key]
			if !ok {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("layout entry %s must be a string, got %T", key, raw)
			}
			*dst = s
		}
		*w = entry
		return nil
	default:
		return fmt.Errorf("invalid layout entry of type %T", data)
	}
}

// WidgetKind is what a layout entry turns into
type WidgetKind int

const (
	WidgetEntity WidgetKind = iota
	WidgetRule
	WidgetLabel
	WidgetTemplate
)

// String returns the kind name
func (k WidgetKind) String() string {
	switch k {
	case WidgetEntity:
		return "entity"
	case WidgetRule:
		return "rule"
	case WidgetLabel:
		return "label"
	case WidgetTemplate:
		return "template"
	default:
		return fmt.Sprintf("WidgetKind(%d)", k)
	}
}

// WidgetSpec is a parsed layout entry
type WidgetSpec struct {
	Kind WidgetKind

	// EntityID is set for WidgetEntity
	EntityID string

	// Name overrides the entity name, or is the caption fallback for labels
	// and templates
	Name string

	// Units overrides the sensor units
	Units string

	// Text is the label caption or template text
	Text string
}

// markerBody returns the text between "<tag" and the closing '>'
func markerBody(s, tag string) (string, bool) {
	if !strings.HasPrefix(s, "<"+tag) || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return strings.TrimSpace(s[len(tag)+1 : len(s)-1]), true
}

// Spec parses the markers <hr...>, <label X> and <template X>. Anything else
// is an entity reference.
func (w WidgetEntry) Spec() WidgetSpec {
	id := strings.TrimSpace(w.Entity)

	if _, ok := markerBody(id, "hr"); ok {
		return WidgetSpec{Kind: WidgetRule}
	}

	if body, ok := markerBody(id, "label"); ok {
		if body == "" {
			body = w.Name
		}
		return WidgetSpec{Kind: WidgetLabel, Text: body, Name: w.Name}
	}

	if body, ok := markerBody(id, "template"); ok {
		if body == "" {
			body = w.Name
		}
		return WidgetSpec{Kind: WidgetTemplate, Text: body, Name: w.Name}
	}

	return WidgetSpec{Kind: WidgetEntity, EntityID: id, Name: w.Name, Units: w.Units}
}

// Specs parses every entry of the page
func (p Page) Specs() []WidgetSpec {
	specs := make([]WidgetSpec, 0, len(p.Entities))
	for _, e := range p.Entities {
		specs = append(specs, e.Spec())
	}
	return specs
}

// EntityIDs returns every entity id referenced anywhere in the layout,
// in first-seen order
func (c *Config) EntityIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, page := range c.Layout {
		for _, spec := range page.Specs() {
			if spec.Kind != WidgetEntity || spec.EntityID == "" || seen[spec.EntityID] {
				continue
			}
			seen[spec.EntityID] = true
			ids = append(ids, spec.EntityID)
		}
	}
	return ids
}

// Duration is a time.Duration written as "1s", "500ms" and so on
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
