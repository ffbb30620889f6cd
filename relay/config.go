package relay

import (
	"time"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
)

const (
	defaultChatPath       = "/chat"
	defaultFakeStreamPath = "/chat/fake-stream"
	defaultLoginPath      = "/auth/jwt/login"
	defaultTimeout        = 5 * time.Minute
	defaultMaxBodyBytes   = 4 << 20
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// UpstreamURL is the chat backend base URL (e.g., "http://localhost:8000")
	UpstreamURL string

	// ChatPath, FakeStreamPath and LoginPath are joined to UpstreamURL.
	ChatPath       string
	FakeStreamPath string
	LoginPath      string

	// FlushTrailing forwards a final record that the backend did not
	// terminate with a newline.
	FlushTrailing bool

	// Timeout bounds every backend call, including reading a stream.
	Timeout time.Duration

	// MaxBodyBytes bounds every backend body the relay reads whole.
	MaxBodyBytes int64

	// Publisher is an optional event stream for recorded transcripts.
	// If nil, no events are published.
	Publisher eventstream.Publisher

	// Metrics is an optional collector set. If nil the relay creates its own.
	Metrics *metrics.Metrics
}

func (c *Config) applyDefaults() {
	if c.ChatPath == "" {
		c.ChatPath = defaultChatPath
	}
	if c.FakeStreamPath == "" {
		c.FakeStreamPath = defaultFakeStreamPath
	}
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
}
