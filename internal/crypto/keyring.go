package crypto

import "fmt"

// keyVersion is bumped when purpose keys rotate.
const keyVersion = 1

// Keyring hands out the purpose keys derived from one master key.
type Keyring struct {
	masterKey []byte
}

// NewKeyring copies masterKey. It must be exactly KeySize bytes.
func NewKeyring(masterKey []byte) (*Keyring, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	k := make([]byte, len(masterKey))
	copy(k, masterKey)
	return &Keyring{masterKey: k}, nil
}

// StoreKey is the SQLCipher database key.
func (k *Keyring) StoreKey() []byte {
	return DeriveKey(k.masterKey, fmt.Sprintf("store:v%d", keyVersion))
}

// CredentialKey seals one user's saved completion credential. Keys differ per
// user, so a sealed value copied between users fails to open.
func (k *Keyring) CredentialKey(userID string) []byte {
	return DeriveKey(k.masterKey, fmt.Sprintf("credential:%s:v%d", userID, keyVersion))
}
