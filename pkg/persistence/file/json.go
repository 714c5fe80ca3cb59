package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// readJSON loads one JSON document. The second return value reports whether
// the file existed.
func readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return true, nil
}

// writeJSON stores one JSON document, creating parent directories as needed.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// listJSONFiles returns the names (without extension) of every JSON document
// in a directory. A missing directory is an empty collection.
func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		names = append(names, entry.Name()[:len(entry.Name())-5])
	}

	return names, nil
}

// walkJSONFiles calls fn for every JSON document under dir, recursively.
func walkJSONFiles(dir string, fn func(path string) error) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		return fn(path)
	})
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
