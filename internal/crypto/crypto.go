// internal/crypto/crypto.go
//
// Package crypto implements the at-rest message codec: AES-256-CBC with a
// single process-wide key derived from the AES_SECRET environment secret.
// Every message gets a fresh random IV, stored hex-encoded next to the
// hex-encoded ciphertext. The server holds the key, so message bodies are
// obscured at rest rather than end-to-end encrypted.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrDecrypt indicates the ciphertext/iv/key combination did not yield valid
// plaintext (wrong key, corrupted bytes, truncated input).
var ErrDecrypt = errors.New("failed to decrypt message")

// DecryptFailedPlaceholder is substituted for a record whose body cannot be
// decrypted, so one corrupt row never fails a whole conversation fetch.
const DecryptFailedPlaceholder = "[Message could not be decrypted]"

// key is the process-wide AES-256 key. Set once via Init; rotation is an
// offline migration, not an in-place operation — re-deriving the key orphans
// every previously stored ciphertext.
var key []byte

// Init derives the AES key as SHA-256 of the shared secret. An empty secret
// is refused; callers treat that as fatal at startup.
func Init(secret string) error {
	if secret == "" {
		return errors.New("AES_SECRET is required")
	}
	sum := sha256.Sum256([]byte(secret))
	key = sum[:]
	return nil
}

// Encrypt encrypts plaintext under the process key with a fresh random IV.
// Returns hex-encoded ciphertext and IV.
func Encrypt(plaintext string) (string, string, error) {
	if key == nil {
		return "", "", errors.New("crypto not initialized")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(out), hex.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt. Any malformed input surfaces as ErrDecrypt.
func Decrypt(cipherHex, ivHex string) (string, error) {
	if key == nil {
		return "", errors.New("crypto not initialized")
	}

	ct, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecrypt)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv encoding", ErrDecrypt)
	}
	if len(iv) != aes.BlockSize || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid input length", ErrDecrypt)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

// DecryptOrPlaceholder decrypts a stored record, substituting the placeholder
// on failure. Used by batch reads to isolate per-record corruption.
func DecryptOrPlaceholder(cipherHex, ivHex string) string {
	plain, err := Decrypt(cipherHex, ivHex)
	if err != nil {
		return DecryptFailedPlaceholder
	}
	return plain
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding byte")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
