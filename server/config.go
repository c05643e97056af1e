package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Hardcoded session and token defaults
const (
	DefaultSessionTTL  = 15 * time.Minute
	DefaultPendingTTL  = 10 * time.Minute
	DefaultAppTokenTTL = 4 * 7 * 24 * time.Hour
)

// Config captures the full application configuration loaded from YAML and
// environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Sessions SessionConfig  `yaml:"sessions"`
	Tokens   TokenConfig    `yaml:"tokens"`
	Keys     KeyConfig      `yaml:"keys"`
	Users    []UserConfig   `yaml:"users"`
}

// ServerConfig controls listener, TLS, and HTTP concerns.
type ServerConfig struct {
	PublicURL       string    `yaml:"public_url"`
	ClientOriginURL string    `yaml:"client_origin_url"`
	DevListenAddr   string    `yaml:"dev_listen_addr"`
	HTTPListenAddr  string    `yaml:"http_listen_addr"`
	HTTPSListenAddr string    `yaml:"https_listen_addr"`
	DevMode         bool      `yaml:"dev_mode"`
	CookieDomain    string    `yaml:"cookie_domain"`
	TLS             TLSConfig `yaml:"tls"`
}

// TLSConfig defines autocert behaviour and TLS constraints.
type TLSConfig struct {
	Domains    []string `yaml:"domains"`
	Email      string   `yaml:"email"`
	MinVersion string   `yaml:"min_version"`
}

// ProviderConfig describes the upstream identity provider this relying
// party delegates authentication to. An empty issuer disables OIDC.
type ProviderConfig struct {
	Issuer                  string   `yaml:"issuer"`
	ClientID                string   `yaml:"client_id"`
	ClientSecret            string   `yaml:"client_secret"`
	Scopes                  []string `yaml:"scopes"`
	ResponseType            string   `yaml:"response_type"`
	TokenEndpointAuthMethod string   `yaml:"token_endpoint_auth_method"`
	RejectNewUsers          bool     `yaml:"reject_new_users"`
	PlaceholderDomain       string   `yaml:"placeholder_domain"`
}

// SessionConfig controls the server-side session record.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// TokenConfig controls the application tokens minted at /signin.
type TokenConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Audience string        `yaml:"audience"`
}

// KeyConfig locates the persisted signing key set.
type KeyConfig struct {
	JWKSPath string `yaml:"jwks_path"`
}

// UserConfig seeds the in-memory user directory in dev mode.
type UserConfig struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Enabled reports whether OIDC authentication is configured at all.
func (p ProviderConfig) Enabled() bool { return p.Issuer != "" }

// Scope returns the requested scope as a space-delimited string.
func (p ProviderConfig) Scope() string { return strings.Join(p.Scopes, " ") }

// RedirectURL derives the callback URI from the public URL so that it is
// always reachable by the process that started the flow.
func (c Config) RedirectURL() string {
	return strings.TrimSuffix(c.Server.PublicURL, "/") + "/authentication/callback"
}

// LoadConfig reads the YAML config file and merges environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(b))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			PublicURL:       "http://127.0.0.1:3001",
			ClientOriginURL: "http://127.0.0.1:3000",
			DevListenAddr:   "127.0.0.1:3001",
			HTTPListenAddr:  ":80",
			HTTPSListenAddr: ":443",
			DevMode:         true,
			TLS: TLSConfig{
				Domains:    []string{"localhost"},
				MinVersion: "1.2",
			},
		},
		Provider: ProviderConfig{
			Scopes:                  []string{"openid", "email"},
			ResponseType:            "code",
			TokenEndpointAuthMethod: "client_secret_basic",
		},
		Sessions: SessionConfig{TTL: DefaultSessionTTL},
		Tokens:   TokenConfig{TTL: DefaultAppTokenTTL},
		Keys:     KeyConfig{JWKSPath: ".secrets/jwks.json"},
	}
}

// DefaultConfig returns the default configuration template.
func DefaultConfig() Config {
	return defaultConfig()
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]func(string){
		"OIDCRP_SERVER_PUBLIC_URL":        func(v string) { cfg.Server.PublicURL = v },
		"OIDCRP_SERVER_CLIENT_ORIGIN_URL": func(v string) { cfg.Server.ClientOriginURL = v },
		"OIDCRP_SERVER_DEV_LISTEN_ADDR":   func(v string) { cfg.Server.DevListenAddr = v },
		"OIDCRP_SERVER_DEV_MODE":          func(v string) { cfg.Server.DevMode = parseBool(v, cfg.Server.DevMode) },
		"OIDCRP_SERVER_TLS_DOMAINS":       func(v string) { cfg.Server.TLS.Domains = splitAndTrim(v) },
		"OIDCRP_PROVIDER_ISSUER":          func(v string) { cfg.Provider.Issuer = v },
		"OIDCRP_PROVIDER_CLIENT_ID":       func(v string) { cfg.Provider.ClientID = v },
		"OIDCRP_PROVIDER_CLIENT_SECRET":   func(v string) { cfg.Provider.ClientSecret = v },
		"OIDCRP_PROVIDER_SCOPES":          func(v string) { cfg.Provider.Scopes = splitAndTrim(v) },
		"OIDCRP_PROVIDER_REJECT_NEW_USERS": func(v string) {
			cfg.Provider.RejectNewUsers = parseBool(v, cfg.Provider.RejectNewUsers)
		},
		"OIDCRP_SESSIONS_TTL": func(v string) { cfg.Sessions.TTL = parseDuration(v, cfg.Sessions.TTL) },
		"OIDCRP_KEYS_JWKS_PATH": func(v string) {
			cfg.Keys.JWKSPath = v
		},
	}

	for key, fn := range overrides {
		if val, ok := os.LookupEnv(key); ok {
			fn(val)
		}
	}
}

func parseDuration(val string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate performs sanity checks on the config.
func (c Config) Validate() error {
	if c.Server.PublicURL == "" {
		return errors.New("server.public_url is required")
	}
	if !validHTTPURL(c.Server.PublicURL) {
		return fmt.Errorf("server.public_url must start with http:// or https://, got: %s", c.Server.PublicURL)
	}
	if c.Server.ClientOriginURL == "" {
		return errors.New("server.client_origin_url is required")
	}
	if !validHTTPURL(c.Server.ClientOriginURL) {
		return fmt.Errorf("server.client_origin_url must start with http:// or https://, got: %s", c.Server.ClientOriginURL)
	}

	if !c.Server.DevMode && len(c.Server.TLS.Domains) == 0 {
		return errors.New("server.tls.domains must be provided in production")
	}
	if c.Server.TLS.MinVersion != "" {
		if c.Server.TLS.MinVersion != "1.2" && c.Server.TLS.MinVersion != "1.3" {
			return fmt.Errorf("server.tls.min_version must be '1.2' or '1.3', got: %s", c.Server.TLS.MinVersion)
		}
	}

	if c.Provider.Enabled() {
		if !validHTTPURL(c.Provider.Issuer) {
			return fmt.Errorf("provider.issuer must start with http:// or https://, got: %s", c.Provider.Issuer)
		}
		if c.Provider.ClientID == "" {
			return errors.New("provider.client_id is required")
		}
		if c.Provider.ResponseType != "" && c.Provider.ResponseType != "code" {
			return fmt.Errorf("provider.response_type must be 'code', got: %s", c.Provider.ResponseType)
		}
		switch c.Provider.TokenEndpointAuthMethod {
		case "", "client_secret_basic", "client_secret_post", "none":
		default:
			return fmt.Errorf("provider.token_endpoint_auth_method %q is not supported", c.Provider.TokenEndpointAuthMethod)
		}
		if c.Provider.TokenEndpointAuthMethod != "none" && c.Provider.TokenEndpointAuthMethod != "" && c.Provider.ClientSecret == "" {
			return fmt.Errorf("provider.client_secret is required for %s", c.Provider.TokenEndpointAuthMethod)
		}
	} else if !c.Server.DevMode {
		return errors.New("provider.issuer is required in production mode")
	}

	if c.Sessions.TTL <= 0 {
		return errors.New("sessions.ttl must be greater than zero")
	}
	if c.Tokens.TTL <= 0 {
		return errors.New("tokens.ttl must be greater than zero")
	}

	for i, u := range c.Users {
		if u.Email == "" {
			return fmt.Errorf("users[%d]: email is required", i)
		}
		if u.ID == "" {
			return fmt.Errorf("users[%d] (%s): id is required", i, u.Email)
		}
	}

	return nil
}

// PlaceholderDomain returns the domain used for synthesized placeholder
// identities, falling back to the client application's host.
func (c Config) PlaceholderDomain() string {
	if c.Provider.PlaceholderDomain != "" {
		return c.Provider.PlaceholderDomain
	}
	if u, err := url.Parse(c.Server.ClientOriginURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "localhost"
}

func validHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
