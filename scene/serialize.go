package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("scene: unknown format %q", s)
}

// Ext is the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// Validate checks that every render reference names a sheet defined by an
// earlier entity and that no sheet is defined twice.
func Validate(p *Prefab) error {
	defined := map[string]int{}
	for i, e := range p.Entities {
		if e.Sheet != nil {
			if prev, ok := defined[e.Sheet.Name]; ok {
				return fmt.Errorf("scene: entity %d redefines sheet %q first defined by entity %d", i, e.Sheet.Name, prev)
			}
			defined[e.Sheet.Name] = i
		}
		if e.Render != nil {
			if _, ok := defined[e.Render.Sheet]; !ok {
				return fmt.Errorf("scene: entity %d references sheet %q before it is defined", i, e.Render.Sheet)
			}
		}
	}
	return nil
}

// Serialize validates p and encodes it.
func Serialize(p *Prefab, format Format) ([]byte, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("scene: marshal json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("scene: marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("scene: marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("scene: unknown format %q", format)
	}
}

// Parse reads a serialized scene back.
func Parse(data []byte, format Format) (*Prefab, error) {
	var p Prefab
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("scene: unmarshal json: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("scene: unmarshal yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("scene: unknown format %q", format)
	}
	return &p, nil
}
