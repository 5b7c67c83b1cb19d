package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// StateSaver persists the pet core's state blob to disk. Writes go through a
// temp file and rename so a power cut mid-write leaves the previous savestate
// intact.
type StateSaver struct {
	path   string
	core   PetCore
	logger *slog.Logger
}

func NewStateSaver(path string, core PetCore, logger *slog.Logger) *StateSaver {
	return &StateSaver{path: path, core: core, logger: logger}
}

// Load restores a savestate if one exists. A missing file is a fresh device,
// not an error.
func (s *StateSaver) Load() (restored bool, err error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("no savestate, starting fresh", "path", s.path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read savestate: %w", err)
	}
	if err := s.core.LoadState(data); err != nil {
		return false, fmt.Errorf("restore savestate: %w", err)
	}
	s.logger.Info("savestate restored", "path", s.path, "bytes", len(data))
	return true, nil
}

// Save dumps the core state and writes it atomically.
func (s *StateSaver) Save() error {
	data, err := s.core.SaveState()
	if err != nil {
		return fmt.Errorf("dump savestate: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("savestate dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write savestate: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit savestate: %w", err)
	}
	s.logger.Debug("savestate written", "path", s.path, "bytes", len(data))
	return nil
}
