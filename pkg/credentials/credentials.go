// Package credentials stores the bearer tokens the chatrelay CLI obtains at
// login. The relay itself never reads them; they exist only on the client.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chatrelay/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// TokenEnvVar overrides any stored token.
	TokenEnvVar = "CHATRELAY_TOKEN"
)

// Manager manages reading and writing credentials.toml in the .chatrelay/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
	now        func() time.Time
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .chatrelay/ directory; otherwise the standard dotdir resolution
// applies and ~/.chatrelay/ is created when nothing resolves.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{
		ddm: dotdir.NewManager(),
		now: time.Now,
	}

	target, err := mgr.ddm.EnsureTarget(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Relays:  make(map[string]RelayCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Relays == nil {
		creds.Relays = make(map[string]RelayCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores the token issued through relay.
func (m *Manager) SetToken(relay string, cred RelayCredential) error {
	if cred.Token == "" {
		return errors.New("cannot store an empty token")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	if cred.SavedAt.IsZero() {
		cred.SavedAt = m.now().UTC()
	}
	creds.Relays[normalizeRelay(relay)] = cred

	return m.Save(creds)
}

// Token returns the bearer token to present to relay. The CHATRELAY_TOKEN
// environment variable wins over anything stored. Returns an empty string if
// no token is known.
func (m *Manager) Token(relay string) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, nil
	}

	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Relays[normalizeRelay(relay)].Token, nil
}

// RemoveToken deletes the stored token for relay. It reports whether a token
// was present.
func (m *Manager) RemoveToken(relay string) (bool, error) {
	creds, err := m.Load()
	if err != nil {
		return false, err
	}

	key := normalizeRelay(relay)
	if _, ok := creds.Relays[key]; !ok {
		return false, nil
	}
	delete(creds.Relays, key)

	return true, m.Save(creds)
}

// ListRelays returns the relay URLs that have stored tokens.
func (m *Manager) ListRelays() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	relays := make([]string, 0, len(creds.Relays))
	for name := range creds.Relays {
		relays = append(relays, name)
	}

	sort.Strings(relays)

	return relays, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

func normalizeRelay(relay string) string {
	return strings.TrimRight(strings.TrimSpace(relay), "/")
}
