package game

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoSave is returned when the game has not produced a save yet.
var ErrNoSave = errors.New("no game save available")

// Adapter is the bridge to the running game.
type Adapter interface {
	// CurrentSave exports the live game state as an opaque string.
	CurrentSave() (string, error)
	// LoadSave replaces the live game state with payload.
	LoadSave(payload string) error
}

// FileAdapter treats a save file on disk as the live game state.
type FileAdapter struct {
	path string
	mu   sync.Mutex
}

func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

func (a *FileAdapter) CurrentSave() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoSave
	}
	if err != nil {
		return "", fmt.Errorf("read save file: %w", err)
	}

	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return "", ErrNoSave
	}
	return payload, nil
}

// LoadSave writes payload through a temporary file and a rename, so the game
// never observes a partial save.
func (a *FileAdapter) LoadSave(payload string) error {
	if payload == "" {
		return fmt.Errorf("refusing to load an empty save")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp save file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp save file: %w", err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace save file: %w", err)
	}
	return nil
}
