package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/pkg"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// Store keeps the preferences document in memory and mirrors every
// change to a TOML file on disk. Safe for concurrent use.
type Store struct {
	mutex sync.RWMutex
	path  string
	prefs Preferences
}

// NewStore loads the preferences from the given TOML file. A missing
// file is not an error, the store starts with defaults and the file
// appears on the first update.
func NewStore(path string) (*Store, error) {
	store := &Store{
		path:  path,
		prefs: Defaults(),
	}

	exists, err := pkg.PathExists(path, false)
	if err != nil {
		return nil, fmt.Errorf("check prefs file: %w", err)
	}
	if !exists {
		log.Debugf("prefs file [%s] not found, starting with defaults", path)
		return store, nil
	}

	prefsBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefs file: %w", err)
	}
	if err := toml.Unmarshal(prefsBytes, &store.prefs); err != nil {
		return nil, fmt.Errorf("unmarshal prefs file: %w", err)
	}
	if err := store.prefs.Validate(); err != nil {
		return nil, fmt.Errorf("prefs file [%s]: %w", path, err)
	}

	return store, nil
}

func (s *Store) Get() Preferences {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.prefs
}

func (s *Store) DisplayUnits() stats.Units {
	return s.Get().Units
}

func (s *Store) StreakIntervalDays() int {
	return s.Get().StreakIntervalDays
}

// Update applies the patch and persists the result. The previous
// document stays in place when validation or the disk write fails.
func (s *Store) Update(patch Patch) (Preferences, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	updated, err := s.prefs.withPatch(patch)
	if err != nil {
		return Preferences{}, err
	}

	if err := s.save(updated); err != nil {
		return Preferences{}, fmt.Errorf("save prefs: %w", err)
	}

	s.prefs = updated
	return updated, nil
}

// save writes to a temp file first and renames it over the real one,
// a killed process never leaves a half written document behind
func (s *Store) save(prefs Preferences) error {
	prefsBytes, err := toml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), "prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(prefsBytes); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
