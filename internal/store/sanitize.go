package store

import (
	"encoding/json"
	"fmt"
)

// SanitizeBlob strips null-valued fields from a JSON blob at every depth
// before it is persisted. The platform client's serialized state carries
// fields with no value, and the persistence layer must never see them;
// defined falsy values (0, "", false) are kept as-is.
//
// A nil or empty blob passes through unchanged.
func SanitizeBlob(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode blob for sanitization: %w", err)
	}

	clean, _ := stripNulls(v)
	out, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode sanitized blob: %w", err)
	}
	return out, nil
}

// stripNulls walks a decoded JSON value and removes null object fields and
// null array elements recursively. The second return is false when the
// value itself is null and should be dropped by the caller.
func stripNulls(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if clean, keep := stripNulls(val); keep {
				out[k] = clean
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if clean, keep := stripNulls(val); keep {
				out = append(out, clean)
			}
		}
		return out, true
	default:
		return v, true
	}
}
