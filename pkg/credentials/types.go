package credentials

import "time"

// Credentials represents the bearer tokens stored in credentials.toml, keyed
// by the relay URL they were issued through.
type Credentials struct {
	Version int                        `toml:"version"`
	Relays  map[string]RelayCredential `toml:"relays"`
}

// RelayCredential holds the token obtained from one relay's login route.
type RelayCredential struct {
	Token     string    `toml:"token"`
	TokenType string    `toml:"token_type,omitempty"`
	Username  string    `toml:"username,omitempty"`
	SavedAt   time.Time `toml:"saved_at"`
}
