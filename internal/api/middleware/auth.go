package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	// ErrInvalidAPIKey indicates the API key is invalid
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrAPIKeyNotFound indicates no API key was provided
	ErrAPIKeyNotFound = errors.New("API key is required")
	// ErrKeyPinned indicates the key comes from configuration and cannot be rotated here
	ErrKeyPinned = errors.New("API key is set in configuration")
)

const (
	// APIKeyHeader is the header name for API key
	APIKeyHeader = "X-API-Key"
	// APIKeyLength is the length of generated API keys (32 bytes = 64 hex chars)
	APIKeyLength = 32
	// APIKeyFile holds the generated key inside the data dir
	APIKeyFile = "api_key.txt"

	bearerPrefix = "Bearer "
)

// APIKeyManager owns the single key guarding /api. A key from configuration is
// pinned; otherwise one is generated once and persisted in the data dir.
type APIKeyManager struct {
	keyFilePath string
	currentKey  string
	pinned      bool
	mu          sync.RWMutex
}

// NewAPIKeyManager loads the persisted key or generates one. A non-empty
// configured key takes precedence and is never written to disk.
func NewAPIKeyManager(dataDir, configured string) (*APIKeyManager, error) {
	m := &APIKeyManager{keyFilePath: filepath.Join(dataDir, APIKeyFile)}
	if configured = strings.TrimSpace(configured); configured != "" {
		m.currentKey = configured
		m.pinned = true
		return m, nil
	}

	data, err := os.ReadFile(m.keyFilePath)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		m.currentKey = strings.TrimSpace(string(data))
		return m, nil
	}
	if err := m.rotate(); err != nil {
		return nil, err
	}
	return m, nil
}

// rotate writes a fresh random key with owner-only permissions
func (m *APIKeyManager) rotate() error {
	buf := make([]byte, APIKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	key := hex.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(m.keyFilePath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(m.keyFilePath, []byte(key), 0600); err != nil {
		return err
	}
	m.currentKey = key
	return nil
}

// GetCurrentKey returns the current API key
func (m *APIKeyManager) GetCurrentKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentKey
}

// IsPinned reports whether the key came from configuration
func (m *APIKeyManager) IsPinned() bool {
	return m.pinned
}

// ValidateKey compares in constant time
func (m *APIKeyManager) ValidateKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(m.currentKey), []byte(key)) == 1
}

// ResetKey replaces the generated key; the old one stops working immediately
func (m *APIKeyManager) ResetKey() (string, error) {
	if m.pinned {
		return "", ErrKeyPinned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.rotate(); err != nil {
		return "", err
	}
	return m.currentKey, nil
}

// APIKeyMiddleware accepts the key in X-API-Key or as a bearer token
func APIKeyMiddleware(apiKeyManager *APIKeyManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
				key = strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
			}
		}

		switch {
		case key == "":
			abortUnauthorized(c, ErrAPIKeyNotFound)
		case !apiKeyManager.ValidateKey(key):
			abortUnauthorized(c, ErrInvalidAPIKey)
		default:
			c.Next()
		}
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "AUTH_FAILED",
			"message": err.Error(),
		},
	})
}
