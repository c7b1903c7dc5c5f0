// Package prefs holds what must outlive a database reset. Today that is the
// list of categories the user added by hand.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/budgetforecast/internal/model"
)

// Dir resolves the preferences directory. Tests point it at a temp dir.
var Dir = func() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "budgetforecast"), nil
}

type document struct {
	Categories []model.Category `json:"categories"`
}

func location() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", fmt.Errorf("locate preferences: %w", err)
	}
	return filepath.Join(dir, "categories.json"), nil
}

// LoadCategories returns the saved categories, or nil if none were saved.
func LoadCategories() ([]model.Category, error) {
	path, err := location()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Categories, nil
}

// SaveCategories overwrites the saved list. Blank names and repeats are
// dropped; the first occurrence keeps its place.
func SaveCategories(cats []model.Category) error {
	path, err := location()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(document{Categories: normalize(cats)}, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(path, raw)
}

// AddCategories appends names to the saved list and returns the result.
func AddCategories(names ...model.Category) ([]model.Category, error) {
	saved, err := LoadCategories()
	if err != nil {
		return nil, err
	}
	merged := normalize(append(saved, names...))
	if err := SaveCategories(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func normalize(cats []model.Category) []model.Category {
	out := make([]model.Category, 0, len(cats))
	seen := make(map[model.Category]struct{}, len(cats))
	for _, c := range cats {
		c = model.Category(strings.TrimSpace(string(c)))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// replaceFile writes through a temp file in the same directory so readers
// see either the old content or the new one.
func replaceFile(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".categories-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
