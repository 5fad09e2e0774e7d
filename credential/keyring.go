package credential

import (
	"context"

	"github.com/99designs/keyring"
	"github.com/cyverse-de/notification-gateway/db"
	"github.com/pkg/errors"
)

const serviceName = "notification-gateway"

// keyringConfig returns the keyring configuration. The encrypted file backend is only allowed when a file
// password is configured.
func keyringConfig(fileDir, filePassword string) keyring.Config {
	cfg := keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	}
	if filePassword != "" {
		cfg.AllowedBackends = append(cfg.AllowedBackends, keyring.FileBackend)
		cfg.FileDir = fileDir
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(filePassword)
	}
	return cfg
}

// openKeyring returns a configured keyring instance.
func openKeyring(fileDir, filePassword string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyringConfig(fileDir, filePassword))
	if err != nil {
		return nil, errors.Wrap(err, "unable to open the keyring")
	}
	return ring, nil
}

// KeyringTokenSource reads the authentication token from the system keyring.
type KeyringTokenSource struct {
	ring keyring.Keyring
	key  string
}

// NewKeyringTokenSource opens the system keyring. The fileDir and filePassword are used by the encrypted file
// backend on systems without a native keyring; with an empty password that backend is disabled.
func NewKeyringTokenSource(fileDir, filePassword string) (*KeyringTokenSource, error) {
	ring, err := openKeyring(fileDir, filePassword)
	if err != nil {
		return nil, err
	}
	return newKeyringTokenSource(ring), nil
}

func newKeyringTokenSource(ring keyring.Keyring) *KeyringTokenSource {
	return &KeyringTokenSource{ring: ring, key: db.AuthTokenKey}
}

// Token returns the stored authentication token.
func (s *KeyringTokenSource) Token(_ context.Context) (string, error) {
	item, err := s.ring.Get(s.key)
	if err == keyring.ErrKeyNotFound {
		return "", db.ErrNoAuthToken
	}
	if err != nil {
		return "", errors.Wrapf(err, "unable to read credential %q", s.key)
	}
	if len(item.Data) == 0 {
		return "", db.ErrNoAuthToken
	}
	return string(item.Data), nil
}
