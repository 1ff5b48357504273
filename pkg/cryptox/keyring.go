package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv is consulted when no master key file is configured.
const MasterKeyEnv = "SENTINEL_MASTER_KEY"

// HKDF info labels. Changing either invalidates everything stored with it.
const (
	sealInfo        = "sentinel/seal/v1"
	fingerprintInfo = "sentinel/fingerprint/v1"
)

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

var (
	keysOnce      sync.Once
	keys          *keyring
	keysErr       error
	masterKeyPath string
)

type keyring struct {
	seal        []byte
	fingerprint []byte
}

// SetMasterKeyPath configures where to load the master key from. It must be
// called before the first Seal, Open or Fingerprint.
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

// loadMasterKey reads key material from, in order, the configured file, the
// SENTINEL_MASTER_KEY environment variable, or a random ephemeral key. The
// ephemeral key makes sealed data unreadable after a restart and is only
// meant for development.
func loadMasterKey() ([]byte, error) {
	if masterKeyPath != "" {
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		return []byte(strings.TrimSpace(string(data))), nil
	}

	if env := os.Getenv(MasterKeyEnv); env != "" {
		return []byte(env), nil
	}

	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
	}
	return material, nil
}

func deriveKey(master []byte, info string) ([]byte, error) {
	out := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return out, nil
}

func getKeys() (*keyring, error) {
	keysOnce.Do(func() {
		master, err := loadMasterKey()
		if err != nil {
			keysErr = err
			return
		}

		k := &keyring{}
		if k.seal, err = deriveKey(master, sealInfo); err != nil {
			keysErr = err
			return
		}
		if k.fingerprint, err = deriveKey(master, fingerprintInfo); err != nil {
			keysErr = err
			return
		}
		keys = k
	})
	return keys, keysErr
}

// Seal encrypts plaintext with AES-256-GCM under the derived sealing key.
// Output layout: [12-byte nonce][ciphertext][16-byte tag].
func Seal(plaintext []byte) ([]byte, error) {
	k, err := getKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	gcm, err := newGCM(k.seal)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte) ([]byte, error) {
	k, err := getKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	gcm, err := newGCM(k.seal)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// SealString is Seal for string payloads such as TOTP secrets.
func SealString(s string) ([]byte, error) { return Seal([]byte(s)) }

// OpenString is Open for string payloads.
func OpenString(sealed []byte) (string, error) {
	b, err := Open(sealed)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Fingerprint returns a keyed HMAC-SHA256 of value, base64url encoded. Low
// entropy secrets like 6-digit codes are stored this way so a leaked row
// cannot be reversed offline without the master key.
func Fingerprint(value string) (string, error) {
	k, err := getKeys()
	if err != nil {
		return "", fmt.Errorf("failed to get master key: %w", err)
	}
	mac := hmac.New(sha256.New, k.fingerprint)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// FingerprintEqual compares two fingerprints in constant time.
func FingerprintEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ResetMasterKeyForTesting drops the cached keys so the next call reloads
// them. Tests only.
func ResetMasterKeyForTesting() {
	keysOnce = sync.Once{}
	keys = nil
	keysErr = nil
}
