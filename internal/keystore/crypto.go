package keystore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	masterKeyFile = "master.key"
	saltFile      = "kdf.salt"
	keyLen        = chacha20poly1305.KeySize

	// scrypt cost parameters
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// newAEAD builds the XChaCha20-Poly1305 cipher for the blob.
func newAEAD(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.NewX(key)
}

// deriveKey stretches a passphrase through scrypt. The salt is generated once
// and persisted next to the blob; losing it makes the blob unreadable, so it
// is never regenerated while it exists.
func deriveKey(passphrase, dir string) ([]byte, error) {
	saltPath := filepath.Join(dir, saltFile)
	salt, err := os.ReadFile(saltPath)
	if os.IsNotExist(err) {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := os.WriteFile(saltPath, salt, 0600); err != nil {
			return nil, fmt.Errorf("write salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
}

// loadOrCreateMasterKey is the no-passphrase bootstrap: a random key is
// generated exactly once and read forever after. If encrypted data already
// exists but the key file is gone, that is a hard setup error — the key is
// never silently regenerated over unreadable ciphertext.
func loadOrCreateMasterKey(dir string, blobExists bool) ([]byte, error) {
	path := filepath.Join(dir, masterKeyFile)
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := hex.DecodeString(string(data))
		if err != nil || len(key) != keyLen {
			return nil, fmt.Errorf("master key file %s is corrupt", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	if blobExists {
		return nil, fmt.Errorf("master key file %s missing but encrypted key data exists; refusing to regenerate", path)
	}
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("write master key: %w", err)
	}
	return key, nil
}

// seal encrypts plaintext under a fresh random nonce; output is nonce||ct.
func seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a nonce||ct blob produced by seal.
func open(aead cipher.AEAD, blob []byte) ([]byte, error) {
	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("blob too short")
	}
	nonce, ct := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}
