package auth

import (
	"fmt"

	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/zalando/go-keyring"
)

const (
	serviceName = "gdrv-ingest"
	// DefaultKeyName is the keyring entry used when none is given
	DefaultKeyName = "service-account"
)

// Manager stores and loads service account keys
type Manager struct {
	configDir      string
	storage        StorageBackend
	storageWarning string
}

// ManagerOptions configures the auth manager
type ManagerOptions struct {
	ForceEncryptedFile bool
}

// NewManager creates a manager that prefers the system keyring
func NewManager(configDir string) *Manager {
	return NewManagerWithOptions(configDir, ManagerOptions{})
}

// NewManagerWithOptions creates a new auth manager with specific options
func NewManagerWithOptions(configDir string, opts ManagerOptions) *Manager {
	mgr := &Manager{configDir: configDir}

	if opts.ForceEncryptedFile || !checkKeyringAvailable() {
		storage, err := NewEncryptedFileStorage(configDir)
		if err != nil {
			mgr.storageWarning = fmt.Sprintf("WARNING: Encryption setup failed (%v). Keys cannot be stored.", err)
			return mgr
		}
		mgr.storage = storage
		if !opts.ForceEncryptedFile {
			mgr.storageWarning = "INFO: System keyring not available. Using encrypted file storage."
		}
		return mgr
	}

	mgr.storage = NewKeyringStorage(serviceName)
	return mgr
}

// checkKeyringAvailable tests if system keyring is available
func checkKeyringAvailable() bool {
	testKey := "gdrv-ingest-test"
	if err := keyring.Set(serviceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// StoreKey validates keyData as a service account key and saves it
func (m *Manager) StoreKey(name string, keyData []byte) (*ServiceAccountKey, error) {
	if m.storage == nil {
		return nil, m.unavailable()
	}
	key, err := ParseServiceAccountKey(keyData)
	if err != nil {
		return nil, err
	}
	if err := m.storage.Save(keyName(name), keyData); err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeStoreError,
			fmt.Sprintf("failed to store key in %s", m.storage.Name())).Build(), err)
	}
	return key, nil
}

// LoadKey returns the stored key data for name
func (m *Manager) LoadKey(name string) ([]byte, error) {
	if m.storage == nil {
		return nil, m.unavailable()
	}
	data, err := m.storage.Load(keyName(name))
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfigInvalid,
			fmt.Sprintf("no service account key stored as %q", keyName(name))).
			WithContext("storage", m.storage.Name()).
			Build(), err)
	}
	return data, nil
}

// DeleteKey removes the stored key for name
func (m *Manager) DeleteKey(name string) error {
	if m.storage == nil {
		return m.unavailable()
	}
	return m.storage.Delete(keyName(name))
}

// StorageName reports the active backend
func (m *Manager) StorageName() string {
	if m.storage == nil {
		return "none"
	}
	return m.storage.Name()
}

// StorageWarning is non-empty when the manager fell back from the keyring
func (m *Manager) StorageWarning() string {
	return m.storageWarning
}

func (m *Manager) unavailable() error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConfigInvalid,
		"no credential storage available").Build())
}

func keyName(name string) string {
	if name == "" {
		return DefaultKeyName
	}
	return name
}
