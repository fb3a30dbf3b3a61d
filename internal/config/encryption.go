package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"rowsetstats/pkg/models"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	keyIterations = 100000
)

// keySalt is fixed so a value encrypted on one run decrypts on the next
var keySalt = []byte("rowsetstats-config-password")

// getEncryptionKey derives the key from ROWSETSTATS_ENCRYPTION_KEY, or from the machine
// when it is unset. A machine-derived value only decrypts on the host that wrote it.
func getEncryptionKey() []byte {
	secret := os.Getenv(EnvPrefix + "_ENCRYPTION_KEY")
	if secret == "" {
		hostname, _ := os.Hostname()
		homeDir, _ := os.UserHomeDir()
		secret = fmt.Sprintf("%s-%s-rowsetstats", hostname, homeDir)
	}
	return pbkdf2.Key([]byte(secret), keySalt, keyIterations, 32, sha256.New)
}

// EncryptPassword encrypts a password using AES-256-GCM and wraps it as ENC[...]
func EncryptPassword(password string) (string, error) {
	if password == "" || IsEncrypted(password) {
		return password, nil
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(password), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext) + encryptedSuffix, nil
}

// DecryptPassword reverses EncryptPassword. Plain values are returned unchanged.
func DecryptPassword(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(value, encryptedPrefix), encryptedSuffix)
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted password: %w", err)
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted checks if a string is encrypted
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

// EncryptConfigPasswords encrypts the engine password in place
func EncryptConfigPasswords(config *models.Config) error {
	encrypted, err := EncryptPassword(config.Engine.Password)
	if err != nil {
		return err
	}
	config.Engine.Password = encrypted
	return nil
}

// DecryptConfigPasswords decrypts the engine password in place
func DecryptConfigPasswords(config *models.Config) error {
	decrypted, err := DecryptPassword(config.Engine.Password)
	if err != nil {
		return err
	}
	config.Engine.Password = decrypted
	return nil
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(getEncryptionKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
