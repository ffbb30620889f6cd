package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent chatrelay configuration stored as
// config.toml in the .chatrelay/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Relay       RelayConfig       `toml:"relay"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
	Log         LogConfig         `toml:"log"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Listen         string `toml:"listen,omitempty"`
	Upstream       string `toml:"upstream,omitempty"`
	ChatPath       string `toml:"chat_path,omitempty"`
	FakeStreamPath string `toml:"fake_stream_path,omitempty"`
	LoginPath      string `toml:"login_path,omitempty"`

	// FlushTrailing forwards a final upstream record that is missing its
	// newline instead of dropping it.
	FlushTrailing bool `toml:"flush_trailing,omitempty"`

	// Timeout bounds a whole upstream exchange, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`

	// MaxBodyBytes caps non-streaming upstream payloads.
	MaxBodyBytes int64 `toml:"max_body_bytes,omitempty"`
}

// StorageConfig selects where transcripts are recorded.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where transcript events are published.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// relay (e.g. chatrelay chat, chatrelay login). Values are full URLs.
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
}

// LogConfig holds logging settings for the serve command.
type LogConfig struct {
	JSON   bool   `toml:"json,omitempty"`
	Pretty bool   `toml:"pretty,omitempty"`
	File   string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.listen":           stringKey(func(c *Config) *string { return &c.Relay.Listen }),
	"relay.upstream":         stringKey(func(c *Config) *string { return &c.Relay.Upstream }),
	"relay.chat_path":        stringKey(func(c *Config) *string { return &c.Relay.ChatPath }),
	"relay.fake_stream_path": stringKey(func(c *Config) *string { return &c.Relay.FakeStreamPath }),
	"relay.login_path":       stringKey(func(c *Config) *string { return &c.Relay.LoginPath }),
	"relay.flush_trailing":   boolKey("relay.flush_trailing", func(c *Config) *bool { return &c.Relay.FlushTrailing }),
	"relay.timeout": {
		get: func(c *Config) string { return c.Relay.Timeout },
		set: func(c *Config, v string) error {
			if _, err := parseTimeout(v); err != nil {
				return fmt.Errorf("invalid value for relay.timeout: %w", err)
			}
			c.Relay.Timeout = v
			return nil
		},
	},
	"relay.max_body_bytes": {
		get: func(c *Config) string {
			if c.Relay.MaxBodyBytes == 0 {
				return ""
			}
			return strconv.FormatInt(c.Relay.MaxBodyBytes, 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for relay.max_body_bytes: %q must be a positive integer", v)
			}
			c.Relay.MaxBodyBytes = n
			return nil
		},
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageDriverInMemory, StorageDriverSQLite, StorageDriverPostgres:
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q (available: %s, %s, %s)",
					v, StorageDriverInMemory, StorageDriverSQLite, StorageDriverPostgres)
			}
		},
	},
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventStreamNop, EventStreamKafka:
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s, %s)",
					v, EventStreamNop, EventStreamKafka)
			}
		},
	},
	"eventstream.brokers": stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":   stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
	"client.relay_target": stringKey(func(c *Config) *string { return &c.Client.RelayTarget }),
	"log.json":            boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty":          boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.file":            stringKey(func(c *Config) *string { return &c.Log.File }),
}
