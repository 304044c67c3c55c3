// Package config implements the immutable string-to-scalar configuration
// mapping each Component is built from (spec §6: "each component is
// constructed from an immutable mapping of string keys to scalar/string
// values"), mirroring the original model's get_config_int/get_config_str.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Map is an immutable component configuration. Construct with New; the
// returned Map never exposes a way to mutate the backing data.
type Map struct {
	values map[string]any
}

// New builds a Map from a plain key/value set. The caller's map is copied so
// later mutation by the caller cannot reach back into the component.
func New(values map[string]any) Map {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Map{values: cp}
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Int returns the key coerced to int, or an error wrapping the missing-key /
// malformed-value condition (spec §7: configuration error — fail fast at
// elaboration).
func (m Map) Int(key string) (int, error) {
	raw, ok := m.values[key]
	if !ok {
		return 0, errors.Errorf("config: missing required key %q", key)
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "config: key %q is not an int", key)
	}
	return v, nil
}

// IntOr returns Int(key), falling back to def when the key is absent.
func (m Map) IntOr(key string, def int) int {
	if !m.Has(key) {
		return def
	}
	v, err := m.Int(key)
	if err != nil {
		return def
	}
	return v
}

// String returns the key coerced to string.
func (m Map) String(key string) (string, error) {
	raw, ok := m.values[key]
	if !ok {
		return "", errors.Errorf("config: missing required key %q", key)
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		return "", errors.Wrapf(err, "config: key %q is not a string", key)
	}
	return v, nil
}
