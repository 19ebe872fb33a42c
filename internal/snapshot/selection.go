package snapshot

import (
	"encoding/json"
	"strings"

	"weddingbudget/internal/selection"
)

// DecodeSelection reads a stored selection map. Each entry may be a single
// vendor id (legacy) or an array of ids; any other shape is dropped. The
// result is normalized.
func DecodeSelection(raw json.RawMessage, opts Options) selection.Map {
	m, _ := decodeSelection(raw, opts)
	return m
}

// MigrateLegacySelection decodes raw and reports whether writing the result
// back would change the stored document, which is the case when any entry
// used the legacy shape, a sanitized key or a non-canonical array.
func MigrateLegacySelection(raw json.RawMessage, opts Options) (selection.Map, bool) {
	return decodeSelection(raw, opts)
}

// EncodeSelection writes m in the canonical array form.
func EncodeSelection(m selection.Map) (json.RawMessage, error) {
	return json.Marshal(selection.Normalize(m))
}

func decodeSelection(raw json.RawMessage, opts Options) (selection.Map, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return selection.Map{}, false
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return selection.Map{}, false
	}

	changed := false
	m := make(selection.Map, len(entries))
	for key, value := range entries {
		serviceType := key
		if opts.DesanitizeKeys {
			serviceType = strings.ReplaceAll(key, "-", "/")
		}
		if serviceType != key {
			changed = true
		}

		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			changed = true
			if single != "" {
				m[serviceType] = append(m[serviceType], single)
			}
			continue
		}
		var ids []string
		if err := json.Unmarshal(value, &ids); err != nil {
			changed = true
			continue
		}
		m[serviceType] = append(m[serviceType], ids...)
	}

	normalized := selection.Normalize(m)
	if !changed {
		changed = !selection.Equal(normalized, m)
	}
	return normalized, changed
}
