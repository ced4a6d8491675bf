// Package settings keeps API credentials in an encrypted file under the
// user's home directory so they need not live in the environment or the
// YAML config.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
)

// ServiceName identifies the service a credential belongs to
type ServiceName string

const (
	ServiceLLM     ServiceName = "llm"
	ServiceNewsAPI ServiceName = "newsapi"
	ServiceAlpaca  ServiceName = "alpaca"
)

// KnownServices lists the services credentials can be stored for
var KnownServices = []ServiceName{ServiceLLM, ServiceNewsAPI, ServiceAlpaca}

// ParseServiceName validates a service name given on the command line
func ParseServiceName(name string) (ServiceName, error) {
	for _, s := range KnownServices {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown service %q (want llm, newsapi or alpaca)", name)
}

// Credential is a stored API key, with a secret for services that need one
type Credential struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret,omitempty"`
}

// MaskedCredential is safe to print
type MaskedCredential struct {
	Service   ServiceName `json:"service"`
	APIKey    string      `json:"api_key"`
	APISecret string      `json:"api_secret,omitempty"`
}

const fileName = "credentials.enc"

// Store manages the encrypted credentials file
type Store struct {
	mu       sync.RWMutex
	filePath string
	sealer   *sealer
	creds    map[ServiceName]Credential
}

// DefaultDir returns ~/.uk-stock-analyzer
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".uk-stock-analyzer"), nil
}

// NewStore opens the credentials file in dataDir, creating the directory if
// needed. A missing file yields an empty store.
func NewStore(dataDir, passphrase string) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	s := &Store{
		filePath: filepath.Join(dataDir, fileName),
		sealer:   newSealer(passphrase),
		creds:    make(map[ServiceName]Credential),
	}

	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the credentials file
func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	plaintext, err := s.sealer.open(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.filePath, err)
	}

	creds := make(map[ServiceName]Credential)
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}
	s.creds = creds
	return nil
}

// save must be called with mu held
func (s *Store) save() error {
	data, err := json.Marshal(s.creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	sealed, err := s.sealer.seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.WriteFile(s.filePath, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Get returns the credential for service
func (s *Store) Get(service ServiceName) (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[service]
	return c, ok
}

// Set stores a credential and persists the file
func (s *Store) Set(service ServiceName, cred Credential) error {
	if cred.APIKey == "" {
		return errors.New("api key is required")
	}
	if service == ServiceAlpaca && cred.APISecret == "" {
		return errors.New("alpaca needs both an api key and a secret")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[service] = cred
	return s.save()
}

// Delete removes a credential and persists the file
func (s *Store) Delete(service ServiceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[service]; !ok {
		return nil
	}
	delete(s.creds, service)
	return s.save()
}

// List returns the stored credentials masked, sorted by service
func (s *Store) List() []MaskedCredential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MaskedCredential, 0, len(s.creds))
	for service, c := range s.creds {
		out = append(out, MaskedCredential{
			Service:   service,
			APIKey:    maskString(c.APIKey),
			APISecret: maskString(c.APISecret),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// Apply fills credentials the config left empty. Keys from the environment
// or the YAML file win over stored ones.
func (s *Store) Apply(cfg *config.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.creds[ServiceLLM]; ok && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = c.APIKey
	}
	if c, ok := s.creds[ServiceNewsAPI]; ok && cfg.NewsAPI.APIKey == "" {
		cfg.NewsAPI.APIKey = c.APIKey
	}
	if c, ok := s.creds[ServiceAlpaca]; ok && cfg.Alpaca.APIKey == "" && cfg.Alpaca.APISecret == "" {
		cfg.Alpaca.APIKey = c.APIKey
		cfg.Alpaca.APISecret = c.APISecret
	}
}

// maskString masks a string showing only last 4 characters
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
