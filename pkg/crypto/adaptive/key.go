package adaptive

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// ErrBadKeyFile is returned when a key file exists with the wrong length.
var ErrBadKeyFile = errors.New("adaptive: key file has wrong length")

// LoadOrCreateKey reads a KeySize master key from path, creating it with
// owner-only permissions when it does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: %s", ErrBadKeyFile, path)
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("adaptive: read key: %w", err)
	}

	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("adaptive: generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("adaptive: key dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return LoadOrCreateKey(path)
		}
		return nil, fmt.Errorf("adaptive: create key: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return nil, fmt.Errorf("adaptive: write key: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("adaptive: write key: %w", err)
	}
	return key, nil
}

// DeriveSubkey derives a purpose-bound KeySize key from master using HKDF-SHA256.
func DeriveSubkey(master []byte, info string) ([]byte, error) {
	if len(master) < KeySize/2 {
		return nil, fmt.Errorf("adaptive: master key too short")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("adaptive: derive subkey: %w", err)
	}
	return key, nil
}
