package storage

import (
	"context"
	"fmt"

	"github.com/yndnr/garagebook-go/pkg/crypto/adaptive"
)

// sealInfo binds the derived key to this store.
const sealInfo = "garagebook credential store v1"

// SealedStore encrypts values before they reach the wrapped KV. The record
// key is the additional data, so a value moved to another key fails to open.
type SealedStore struct {
	kv     KV
	cipher adaptive.Cipher
}

// NewSealedStore wraps kv with c.
func NewSealedStore(kv KV, c adaptive.Cipher) *SealedStore {
	return &SealedStore{kv: kv, cipher: c}
}

func sealWithKeyFile(kv KV, keyFile string) (*SealedStore, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("storage: encryption requires a key file")
	}
	master, err := adaptive.LoadOrCreateKey(keyFile)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	key, err := adaptive.DeriveSubkey(master, sealInfo)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	c, err := adaptive.New(key)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return NewSealedStore(kv, c), nil
}

// Get opens the stored value. Values that fail authentication return ErrUnsealed.
func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.cipher.Decrypt(sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsealed, key)
	}
	return plain, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.cipher.Encrypt(value, []byte(key))
	if err != nil {
		return fmt.Errorf("storage: seal %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

func (s *SealedStore) Close() error {
	return s.kv.Close()
}
