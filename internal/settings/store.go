package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finpulse/finpulse/pkg/models"
)

// Settings is the operator-editable configuration persisted between
// restarts. Currently just the custom ticker list shown alongside the
// defaults.
type Settings struct {
	CustomTickers []string `json:"customTickers"`
}

// Store reads and writes the settings JSON file. Single-operator use:
// last writer wins, no file locking.
type Store struct {
	path string
}

// NewStore creates a settings store at path. The parent directory is
// created on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings file. A missing file is not an error: it
// yields empty settings, the state before any operator customization.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return &settings, nil
}

// Save writes the settings file via a temp file and rename, so a
// crash mid-write never leaves a truncated file behind
func (s *Store) Save(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

// SetCustomTickers normalizes, dedupes and persists the operator's
// ticker list
func (s *Store) SetCustomTickers(tickers []string) error {
	seen := make(map[string]bool, len(tickers))
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		norm := models.NormalizeTicker(t)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		normalized = append(normalized, norm)
	}

	return s.Save(&Settings{CustomTickers: normalized})
}

// CustomTickers returns the persisted custom ticker list
func (s *Store) CustomTickers() ([]string, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	return settings.CustomTickers, nil
}
