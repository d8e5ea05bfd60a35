package broker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000

	// SecretPrefix marks an encrypted configuration value.
	SecretPrefix = "enc:"
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be at least 32 characters")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Encryptor encrypts and decrypts account secrets kept in configuration.
type Encryptor struct {
	masterKey []byte
}

// NewEncryptor creates a new Encryptor with the given master secret.
// The secret should be at least 32 characters for security.
func NewEncryptor(secret string) (*Encryptor, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidKey
	}
	hash := sha256.Sum256([]byte(secret))
	return &Encryptor{masterKey: hash[:]}, nil
}

// DeriveKey derives a per-account key using PBKDF2 with the account name as salt.
func (e *Encryptor) DeriveKey(account string) []byte {
	salt := "account:" + account
	return pbkdf2.Key(e.masterKey, []byte(salt), PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt encrypts plaintext using AES-256-GCM with the account's key.
// Returns the ciphertext and the nonce used for encryption.
func (e *Encryptor) Encrypt(plaintext, account string) (ciphertext, nonce []byte, err error) {
	gcm, err := e.gcm(account)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the account's key.
func (e *Encryptor) Decrypt(ciphertext, nonce []byte, account string) (string, error) {
	if len(ciphertext) == 0 || len(nonce) == 0 {
		return "", ErrInvalidCiphertext
	}

	gcm, err := e.gcm(account)
	if err != nil {
		return "", err
	}

	if len(nonce) != gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Seal encrypts a value into its "enc:<base64(nonce|ciphertext)>" config form.
func (e *Encryptor) Seal(plaintext, account string) (string, error) {
	ciphertext, nonce, err := e.Encrypt(plaintext, account)
	if err != nil {
		return "", err
	}
	blob := append(nonce, ciphertext...)
	return SecretPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Open reverses Seal. Values without the prefix are returned unchanged.
func (e *Encryptor) Open(value, account string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil || len(blob) <= NonceSize {
		return "", ErrInvalidCiphertext
	}
	return e.Decrypt(blob[NonceSize:], blob[:NonceSize], account)
}

// IsSealed reports whether a config value is encrypted.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}

func (e *Encryptor) gcm(account string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.DeriveKey(account))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
