package variable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cascadehq/cascade/pkg/nodes/parts"
)

// ExtractPath pulls a value out of a node's output by dotted path with
// optional [n] indexing, e.g. "company.contacts[0].email". The document may
// be wrapped in a markdown code fence, and intermediate values may be JSON
// stringified inside the outer document; both are unwrapped transparently.
// An empty path returns the whole document.
func ExtractPath(document, path string) (string, error) {
	document = parts.StripCodeFence(document)

	if strings.TrimSpace(path) == "" {
		return document, nil
	}

	var current any

	if err := json.Unmarshal([]byte(document), &current); err != nil {
		return "", fmt.Errorf("output is not structured: %w", err)
	}

	for _, segment := range splitPath(path) {
		// A stringified nested document blocks further descent until
		// reparsed.
		if text, ok := current.(string); ok {
			var nested any
			if err := json.Unmarshal([]byte(parts.StripCodeFence(text)), &nested); err == nil {
				current = nested
			}
		}

		var err error

		if segment.index >= 0 {
			current, err = descendIndex(current, segment)
		} else {
			current, err = descendKey(current, segment.key)
		}

		if err != nil {
			return "", err
		}
	}

	return stringify(current)
}

type pathSegment struct {
	key   string
	index int // -1 for plain keys
}

// splitPath turns "a.b[2].c" into [{a,-1},{b,2},{c,-1}].
func splitPath(path string) []pathSegment {
	var segments []pathSegment

	for _, raw := range strings.Split(path, ".") {
		key := raw
		index := -1

		if open := strings.Index(raw, "["); open != -1 && strings.HasSuffix(raw, "]") {
			if n, err := strconv.Atoi(raw[open+1 : len(raw)-1]); err == nil {
				key = raw[:open]
				index = n
			}
		}

		segments = append(segments, pathSegment{key: key, index: index})
	}

	return segments
}

func descendKey(current any, key string) (any, error) {
	object, ok := current.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("path segment %q: value is not an object", key)
	}

	value, ok := object[key]
	if !ok {
		return nil, fmt.Errorf("path segment %q not found", key)
	}

	return value, nil
}

func descendIndex(current any, segment pathSegment) (any, error) {
	if segment.key != "" {
		var err error

		current, err = descendKey(current, segment.key)
		if err != nil {
			return nil, err
		}
	}

	list, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("path segment %q[%d]: value is not a list", segment.key, segment.index)
	}

	if segment.index >= len(list) {
		return nil, fmt.Errorf("path segment %q[%d]: index out of range (%d entries)", segment.key, segment.index, len(list))
	}

	return list[segment.index], nil
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode extracted value: %w", err)
		}

		return string(encoded), nil
	}
}
