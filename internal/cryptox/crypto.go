// Package cryptox encrypts small secrets (remote OAuth tokens) before they
// are written to the database.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedCiphertext is returned when a stored value cannot be decoded.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// DeriveKey stretches a configured passphrase into a 256-bit AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Encryptor seals strings with AES-GCM. The nonce is prepended to the
// ciphertext and the result is base64 encoded so it fits a TEXT column.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives the key from passphrase and builds an AES-GCM AEAD.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	key := DeriveKey([]byte(passphrase), []byte("workhub/remote-tokens"))

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt returns "" for an empty plaintext so absent tokens stay absent.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	n := e.aead.NonceSize()
	if len(raw) < n {
		return "", ErrMalformedCiphertext
	}

	plaintext, err := e.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return string(plaintext), nil
}
