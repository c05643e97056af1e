package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
)

type keyPair struct {
	PrivateKey *rsa.PrivateKey
	JWK        jose.JSONWebKey
	Kid        string
	CreatedAt  time.Time
}

// JWKSManager manages the signing key for minted application tokens and
// exposes the public JSON Web Key Set.
type JWKSManager struct {
	mu        sync.RWMutex
	current   keyPair
	storePath string
	logger    *slog.Logger
}

// NewJWKSManager loads the persisted signing key or creates one.
func NewJWKSManager(cfg KeyConfig, logger *slog.Logger) (*JWKSManager, error) {
	manager := &JWKSManager{
		storePath: cfg.JWKSPath,
		logger:    logger,
	}

	if cfg.JWKSPath != "" {
		if err := manager.loadFromDisk(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if manager.current.PrivateKey == nil {
		if err := manager.generate(); err != nil {
			return nil, err
		}
	}

	return manager, nil
}

// Sign signs claims and returns the token string.
func (m *JWKSManager) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	m.mu.RLock()
	defer m.mu.RUnlock()
	token.Header["kid"] = m.current.Kid
	return token.SignedString(m.current.PrivateKey)
}

// Keyfunc is used during JWT validation.
func (m *JWKSManager) Keyfunc(token *jwt.Token) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &m.current.PrivateKey.PublicKey, nil
}

// PublicJWKS exposes the public key for the JWKS endpoint.
func (m *JWKSManager) PublicJWKS() jose.JSONWebKeySet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{m.current.JWK.Public()}}
}

func (m *JWKSManager) generate() error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}
	kid := randomKID()
	jwk := jose.JSONWebKey{Key: key, KeyID: kid, Algorithm: string(jose.RS256), Use: "sig"}

	m.mu.Lock()
	m.current = keyPair{PrivateKey: key, JWK: jwk, Kid: kid, CreatedAt: time.Now()}
	m.mu.Unlock()

	if m.storePath != "" {
		return m.persist()
	}
	return nil
}

func (m *JWKSManager) persist() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, err := json.MarshalIndent(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{m.current.JWK}}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.storePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.storePath, payload, 0o600)
}

func (m *JWKSManager) loadFromDisk() error {
	payload, err := os.ReadFile(m.storePath)
	if err != nil {
		return err
	}
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(payload, &set); err != nil {
		return err
	}
	if len(set.Keys) == 0 {
		return errors.New("no keys in jwks")
	}
	key := set.Keys[0]
	priv, ok := key.Key.(*rsa.PrivateKey)
	if !ok {
		return errors.New("jwks key is not an RSA private key")
	}
	m.current = keyPair{PrivateKey: priv, JWK: key, Kid: key.KeyID, CreatedAt: time.Now()}
	return nil
}

func randomKID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "kid"
	}
	return hex.EncodeToString(buf)
}
