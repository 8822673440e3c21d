package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"screentime/internal/domain"
)

const (
	keyFileName = ".snapshot.key"
	keyLen      = 32
)

// FileKeyProvider implements domain.KeyProvider using a hidden file
// in the data directory with 0600 permissions. It supplies the
// SQLCipher passphrase for the encrypted snapshot store.
type FileKeyProvider struct {
	path string
}

// NewFileKeyProvider creates a key provider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{path: filepath.Join(dataDir, keyFileName)}
}

// GetKey reads and decodes the stored key.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keyLen)
	}
	return key, nil
}

// StoreKey persists the key with restricted permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keyLen {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keyLen)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.path, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// EnsureKey returns the stored key, generating and persisting a fresh
// random one on first use.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Ensure FileKeyProvider implements domain.KeyProvider.
var _ domain.KeyProvider = (*FileKeyProvider)(nil)
