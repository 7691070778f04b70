// Package identity manages the stable client identifier hostbridge presents to
// its backend. The identifier is generated on first run and persisted in the
// OS keyring, falling back to a file when secure storage is unavailable.
package identity

// file: internal/identity/identity.go

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/zalando/go-keyring"

	"github.com/hostbridge/hostbridge/internal/logging"
)

const (
	keyringService = "HostbridgeClient"
	keyringUser    = "ClientID"
)

// Store persists a client identifier.
type Store interface {
	// Load returns the persisted identifier, or "" when none exists yet.
	Load() (string, error)
	// Save persists the identifier.
	Save(id string) error
}

// KeyringStore stores the identifier in the OS keychain.
type KeyringStore struct {
	logger logging.Logger
}

// NewKeyringStore creates a keyring-backed store.
func NewKeyringStore(logger logging.Logger) *KeyringStore {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &KeyringStore{logger: logger.WithField("component", "identity_keyring")}
}

// Load implements Store.
func (s *KeyringStore) Load() (string, error) {
	id, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to load client id from system keyring")
	}
	return id, nil
}

// Save implements Store.
func (s *KeyringStore) Save(id string) error {
	if err := keyring.Set(keyringService, keyringUser, id); err != nil {
		return errors.Wrap(err, "failed to save client id to system keyring")
	}
	s.logger.Debug("Saved client id to system keyring.")
	return nil
}

// FileStore stores the identifier in a plain file. Used as a fallback when
// the OS keyring is unavailable.
type FileStore struct {
	path   string
	logger logging.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, logger logging.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create identity directory")
	}
	return &FileStore{path: path, logger: logger.WithField("component", "identity_file")}, nil
}

// Load implements Store.
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to read identity file: %s", s.path)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save implements Store.
func (s *FileStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write identity file: %s", s.path)
	}
	s.logger.Debug("Saved client id to file.", "path", s.path)
	return nil
}

// DefaultFilePath returns the fallback identity file path under the user's
// config directory.
func DefaultFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "hostbridge_client_id"
	}
	return filepath.Join(homeDir, ".config", "hostbridge", "client_id")
}

// Resolve returns the effective client identifier. A configured id wins
// outright; otherwise the persisted id is loaded, and a fresh one is
// generated and saved on first run. Keyring failures fall back to the file
// store rather than aborting.
func Resolve(configured string, primary, fallback Store, logger logging.Logger) (string, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	log := logger.WithField("component", "identity")

	if configured != "" {
		return configured, nil
	}

	stores := []Store{primary, fallback}
	for _, store := range stores {
		if store == nil {
			continue
		}
		id, err := store.Load()
		if err != nil {
			log.Warn("Identity store load failed, trying next store.", "error", err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	log.Info("Generated new client id.", "clientID", id)
	var saveErr error
	for _, store := range stores {
		if store == nil {
			continue
		}
		if saveErr = store.Save(id); saveErr == nil {
			return id, nil
		}
		log.Warn("Identity store save failed, trying next store.", "error", saveErr)
	}
	if saveErr != nil {
		return "", errors.Wrap(saveErr, "failed to persist generated client id")
	}
	return id, nil
}
