package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"rowsetstats/internal/common"
	"rowsetstats/pkg/errors"
)

const (
	// Keyring service name
	keyringService = "rowsetstats"
	// Salt for key derivation
	saltSize = 32
	// Number of iterations for PBKDF2
	pbkdf2Iterations = 100000
	// Key size for AES-256
	keySize = 32
)

// CredentialManager stores engine passwords in the system keyring, or in an
// encrypted file store when no keyring is available.
type CredentialManager struct {
	useKeyring bool
	dir        string
	masterKey  []byte
}

// Credential is the on-disk form of a password in the file store
type Credential struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

// NewCredentialManager picks the keyring when the platform has one
func NewCredentialManager() (*CredentialManager, error) {
	if isKeyringAvailable() {
		return &CredentialManager{useKeyring: true}, nil
	}
	return NewFileCredentialManager(defaultCredentialsDir())
}

// NewFileCredentialManager stores credentials as encrypted files under dir
func NewFileCredentialManager(dir string) (*CredentialManager, error) {
	cleaned, err := common.CleanPath(dir)
	if err != nil {
		return nil, errors.FilesystemError("Invalid credentials directory", dir, err)
	}

	cm := &CredentialManager{dir: cleaned}
	key, err := cm.getMasterKey()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to initialize master key").
			WithContext("dir", cleaned)
	}
	cm.masterKey = key
	return cm, nil
}

// UsesKeyring reports whether the system keyring backs this manager
func (cm *CredentialManager) UsesKeyring() bool {
	return cm.useKeyring
}

// CredentialKey names the password for a login on a server
func CredentialKey(server, username string) string {
	return server + "/" + username
}

// StorePassword saves the password for username on server
func (cm *CredentialManager) StorePassword(server, username, password string) error {
	name := CredentialKey(server, username)
	if cm.useKeyring {
		if err := keyring.Set(keyringService, name, password); err != nil {
			return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to store password in keyring").
				WithContext("credential", name)
		}
		return nil
	}
	return cm.storeEncrypted(name, password)
}

// GetPassword returns the stored password for username on server
func (cm *CredentialManager) GetPassword(server, username string) (string, error) {
	name := CredentialKey(server, username)
	if cm.useKeyring {
		password, err := keyring.Get(keyringService, name)
		if err != nil {
			return "", notFoundOr(err, name)
		}
		return password, nil
	}
	return cm.getEncrypted(name)
}

// DeletePassword removes the stored password, if any
func (cm *CredentialManager) DeletePassword(server, username string) error {
	name := CredentialKey(server, username)
	if cm.useKeyring {
		if err := keyring.Delete(keyringService, name); err != nil {
			return notFoundOr(err, name)
		}
		return nil
	}

	if err := os.Remove(cm.getCredentialPath(name)); err != nil {
		return notFoundOr(err, name)
	}
	return nil
}

func notFoundOr(err error, name string) error {
	if stderrors.Is(err, keyring.ErrNotFound) || stderrors.Is(err, os.ErrNotExist) {
		return errors.New(errors.ErrCodeCredentialNotFound, "No stored password").
			WithContext("credential", name).
			WithSuggestions("Run 'rowsetstats setup' to store the password")
	}
	return errors.Wrap(err, errors.ErrCodeInternal, "Credential store failed").
		WithContext("credential", name)
}

// Encrypted file storage methods

func (cm *CredentialManager) storeEncrypted(name, value string) error {
	encrypted, err := cm.encrypt(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to encrypt credential")
	}

	data, err := json.MarshalIndent(Credential{Name: name, Value: encrypted, Encrypted: true}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cm.dir, common.DirPermissionSecure); err != nil {
		return errors.FilesystemError("Failed to create credentials directory", cm.dir, err)
	}

	path := cm.getCredentialPath(name)
	if err := os.WriteFile(path, data, common.FilePermissionSecure); err != nil { // #nosec G304
		return errors.FilesystemError("Failed to write credential", path, err)
	}
	return nil
}

func (cm *CredentialManager) getEncrypted(name string) (string, error) {
	data, err := os.ReadFile(cm.getCredentialPath(name)) // #nosec G304
	if err != nil {
		return "", notFoundOr(err, name)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Corrupt credential file").
			WithContext("credential", name)
	}

	if !cred.Encrypted {
		return cred.Value, nil
	}

	decrypted, err := cm.decrypt(cred.Value)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to decrypt credential").
			WithContext("credential", name)
	}
	return decrypted, nil
}

// Encryption methods

func (cm *CredentialManager) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (cm *CredentialManager) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, encryptedData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, encryptedData, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Helper methods

func (cm *CredentialManager) getMasterKey() ([]byte, error) {
	keyPath := filepath.Join(cm.dir, ".master")

	data, err := os.ReadFile(keyPath) // #nosec G304
	if err == nil {
		// salt followed by key
		if len(data) != saltSize+keySize {
			return nil, fmt.Errorf("invalid master key file size")
		}
		return data[saltSize:], nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(getMachineID()), salt, pbkdf2Iterations, keySize, sha256.New)

	if err := os.MkdirAll(cm.dir, common.DirPermissionSecure); err != nil {
		return nil, err
	}

	keyData := append(salt, key...)
	if err := os.WriteFile(keyPath, keyData, common.FilePermissionSecure); err != nil { // #nosec G304
		return nil, err
	}

	return key, nil
}

// getCredentialPath maps a credential name to a flat file name. Names contain '/'.
func (cm *CredentialManager) getCredentialPath(name string) string {
	return filepath.Join(cm.dir, base64.RawURLEncoding.EncodeToString([]byte(name))+".cred")
}

func defaultCredentialsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rowsetstats", "credentials")
}

// Platform-specific helpers

func isKeyringAvailable() bool {
	if os.Getenv("ROWSETSTATS_USE_KEYCHAIN") == "false" {
		return false
	}

	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		if os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" {
			return true
		}
	}
	return false
}

func getMachineID() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}

	data := fmt.Sprintf("%s-%s-%s-%s", hostname, user, runtime.GOOS, runtime.GOARCH)
	hash := sha256.Sum256([]byte(data))
	return base64.StdEncoding.EncodeToString(hash[:])
}
