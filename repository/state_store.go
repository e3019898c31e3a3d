package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"bidkeeper/models"
)

// stateFileVersion guards the on-disk format; bump when the envelope changes.
const stateFileVersion = 1

// stateEnvelope is the persisted document: the whole ledger state wrapped
// with an explicit version field.
type stateEnvelope struct {
	Version int                    `json:"version"`
	State   *models.LedgerSnapshot `json:"state"`
}

// FileStateStore persists the ledger as one JSON document, replaced whole on
// every save. Implements service.StateStore.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a state store writing to path
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Save writes the full state atomically: a temp file in the same directory is
// written, synced and renamed over the target, so a crash mid-write can never
// leave a half-written snapshot behind.
func (fs *FileStateStore) Save(state *models.LedgerSnapshot) error {
	data, err := json.MarshalIndent(stateEnvelope{Version: stateFileVersion, State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger state: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load reads the persisted state. A missing or unreadable file reports
// ok=false so the caller starts empty; corruption is never fatal.
func (fs *FileStateStore) Load() (*models.LedgerSnapshot, bool, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state file %s: %w", fs.path, err)
	}

	var envelope stateEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Warnf("State file %s is corrupt, starting empty: %v", fs.path, err)
		return nil, false, nil
	}
	if envelope.State == nil {
		log.Warnf("State file %s has no state document, starting empty", fs.path)
		return nil, false, nil
	}
	if envelope.Version != stateFileVersion {
		log.Warnf("State file %s has unsupported version %d, starting empty", fs.path, envelope.Version)
		return nil, false, nil
	}
	return envelope.State, true, nil
}

// NoopStateStore discards saves and loads nothing. Used when persistence is
// disabled and as the default store in tests.
type NoopStateStore struct{}

// NewNoopStateStore creates a state store that persists nothing
func NewNoopStateStore() *NoopStateStore {
	return &NoopStateStore{}
}

func (*NoopStateStore) Save(*models.LedgerSnapshot) error {
	return nil
}

func (*NoopStateStore) Load() (*models.LedgerSnapshot, bool, error) {
	return nil, false, nil
}
