package config

import (
	"fmt"
	"time"
)

// Storage drivers.
const (
	StorageDriverInMemory = "inmemory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// Event stream providers.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

const (
	defaultListen         = ":3000"
	defaultUpstream       = "http://localhost:8000"
	defaultChatPath       = "/chat"
	defaultFakeStreamPath = "/chat/fake-stream"
	defaultLoginPath      = "/auth/jwt/login"
	defaultTimeout        = "5m"
	defaultMaxBodyBytes   = 4 << 20

	defaultStorageDriver = StorageDriverInMemory

	defaultEventStreamProvider = EventStreamNop
	defaultEventStreamBrokers  = "localhost:9092"
	defaultEventStreamTopic    = "chatrelay.transcripts"

	defaultClientRelayTarget = "http://localhost:3000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen:         defaultListen,
			Upstream:       defaultUpstream,
			ChatPath:       defaultChatPath,
			FakeStreamPath: defaultFakeStreamPath,
			LoginPath:      defaultLoginPath,
			Timeout:        defaultTimeout,
			MaxBodyBytes:   defaultMaxBodyBytes,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Brokers:  defaultEventStreamBrokers,
			Topic:    defaultEventStreamTopic,
		},
		Client: ClientConfig{
			RelayTarget: defaultClientRelayTarget,
		},
	}
}

// TimeoutDuration parses Relay.Timeout, falling back to the default when it
// is empty.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Relay.Timeout == "" {
		return parseTimeout(defaultTimeout)
	}
	return parseTimeout(c.Relay.Timeout)
}

func parseTimeout(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", v)
	}
	return d, nil
}
