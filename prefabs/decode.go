package prefabs

import "gopkg.in/yaml.v3"

// DecodeSpec converts a loosely typed value (a decoded YAML node or a script
// result) into T by round-tripping it through YAML.
func DecodeSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}
