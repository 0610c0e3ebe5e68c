// Package credentials stores the Gemini and Whisper API keys in
// ~/.focusflow/credentials.yaml, encrypted at rest with AES-GCM.
//
// The encryption key lives in the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// For CI set FOCUSFLOW_ENCRYPTION_KEY to a 64-character hex string (32 bytes).
// Hosts without a keyring can set FOCUSFLOW_PASSPHRASE instead.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential storage constants.
const (
	DefaultCredentialsDir  = ".focusflow"
	DefaultCredentialsFile = "credentials.yaml"

	// Environment overrides; they win over stored keys.
	EnvGeminiAPIKey  = "FOCUSFLOW_GEMINI_API_KEY"
	EnvGeminiAPIKeys = "FOCUSFLOW_GEMINI_API_KEYS"
	EnvWhisperAPIKey = "FOCUSFLOW_WHISPER_API_KEY"
)

// Common errors.
var (
	// ErrNoCredentials is returned when no credentials are stored.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrEncryptionFailed is returned when encryption/decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// Credentials holds the service API keys.
type Credentials struct {
	// GeminiAPIKeys are tried in order; the client rotates on quota errors.
	GeminiAPIKeys []string `yaml:"gemini_api_keys,omitempty"`
	WhisperAPIKey string   `yaml:"whisper_api_key,omitempty"`
	// LastUpdated is when the credentials were last saved.
	LastUpdated time.Time `yaml:"last_updated"`
}

// IsEmpty reports whether no key is set.
func (c *Credentials) IsEmpty() bool {
	return c == nil || (len(c.GeminiAPIKeys) == 0 && c.WhisperAPIKey == "")
}

// Store manages credential storage operations.
type Store struct {
	credentialsDir string
	encryptionKey  []byte
	keyProvider    KeyProvider
}

// NewStore creates a credential store using the default key provider.
func NewStore() (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}

	keyProvider, err := GetDefaultKeyProvider(dir)
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}
	return newStore(dir, keyProvider)
}

// NewStoreWithKeyProvider creates a credential store with a custom key provider.
func NewStoreWithKeyProvider(keyProvider KeyProvider) (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}
	return newStore(dir, keyProvider)
}

func newStore(dir string, keyProvider KeyProvider) (*Store, error) {
	key, err := keyProvider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	return &Store{
		credentialsDir: dir,
		encryptionKey:  key,
		keyProvider:    keyProvider,
	}, nil
}

// KeyStorage describes where the encryption key is kept.
func (s *Store) KeyStorage() string {
	return s.keyProvider.Description()
}

// CredentialsDir returns the credentials directory path.
// Uses $FOCUSFLOW_CONFIG_DIR if set, otherwise ~/.focusflow
func CredentialsDir() (string, error) {
	if dir := os.Getenv("FOCUSFLOW_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultCredentialsDir), nil
}

// CredentialsPath returns the full path to the credentials file.
func CredentialsPath() (string, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

// Save stores credentials to the credentials file.
func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(s.credentialsDir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	stored := Credentials{LastUpdated: time.Now()}
	for i, key := range creds.GeminiAPIKeys {
		encrypted, err := s.encrypt(key)
		if err != nil {
			return fmt.Errorf("encrypting Gemini key %d: %w", i+1, err)
		}
		stored.GeminiAPIKeys = append(stored.GeminiAPIKeys, encrypted)
	}
	if creds.WhisperAPIKey != "" {
		encrypted, err := s.encrypt(creds.WhisperAPIKey)
		if err != nil {
			return fmt.Errorf("encrypting Whisper key: %w", err)
		}
		stored.WhisperAPIKey = encrypted
	}

	data, err := yaml.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	if err := os.WriteFile(credPath, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Load reads and decrypts the credentials file.
func (s *Store) Load() (*Credentials, error) {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)

	data, err := os.ReadFile(credPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	for i, key := range creds.GeminiAPIKeys {
		decrypted, err := s.decrypt(key)
		if err != nil {
			return nil, fmt.Errorf("decrypting Gemini key %d: %w", i+1, err)
		}
		creds.GeminiAPIKeys[i] = decrypted
	}
	if creds.WhisperAPIKey != "" {
		decrypted, err := s.decrypt(creds.WhisperAPIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting Whisper key: %w", err)
		}
		creds.WhisperAPIKey = decrypted
	}

	return &creds, nil
}

// Delete removes stored credentials.
func (s *Store) Delete() error {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	if err := os.Remove(credPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

// Exists checks if the credentials file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.credentialsDir, DefaultCredentialsFile))
	return err == nil
}

// Active returns the keys to use: environment variables first, then the
// stored file. A missing file is not an error.
func (s *Store) Active() (*Credentials, error) {
	creds, err := s.Load()
	if errors.Is(err, ErrNoCredentials) {
		creds, err = &Credentials{}, nil
	}
	if err != nil {
		return nil, err
	}
	return FromEnv(creds), nil
}

// FromEnv overlays environment keys on base and returns the result.
func FromEnv(base *Credentials) *Credentials {
	out := Credentials{}
	if base != nil {
		out = *base
	}
	if keys := splitKeys(os.Getenv(EnvGeminiAPIKeys)); len(keys) > 0 {
		out.GeminiAPIKeys = keys
	} else if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		out.GeminiAPIKeys = []string{key}
	}
	if key := strings.TrimSpace(os.Getenv(EnvWhisperAPIKey)); key != "" {
		out.WhisperAPIKey = key
	}
	return &out
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// encrypt encrypts a string using AES-GCM.
func (s *Store) encrypt(plaintext string) (string, error) {
	gcm, err := newGCM(s.encryptionKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an AES-GCM encrypted string.
func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}

	gcm, err := newGCM(s.encryptionKey)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}

// MaskCredential returns a masked version of the credential for display.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}
