package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[relay]
listen = ":9090"
upstream = "http://backend:8000"
chat_path = "/v2/chat"
fake_stream_path = "/v2/demo"
login_path = "/v2/login"
flush_trailing = true
timeout = "30s"
max_body_bytes = 1024

[storage]
driver = "sqlite"
sqlite_path = "/tmp/chatrelay.db"
postgres_dsn = "postgres://x"

[eventstream]
provider = "kafka"
brokers = "k1:9092,k2:9092"
topic = "relay"

[client]
relay_target = "http://myhost:9090"

[log]
json = true
pretty = true
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Relay).To(Equal(config.RelayConfig{
				Listen:         ":9090",
				Upstream:       "http://backend:8000",
				ChatPath:       "/v2/chat",
				FakeStreamPath: "/v2/demo",
				LoginPath:      "/v2/login",
				FlushTrailing:  true,
				Timeout:        "30s",
				MaxBodyBytes:   1024,
			}))
			Expect(cfg.Storage).To(Equal(config.StorageConfig{
				Driver:      "sqlite",
				SQLitePath:  "/tmp/chatrelay.db",
				PostgresDSN: "postgres://x",
			}))
			Expect(cfg.EventStream).To(Equal(config.EventStreamConfig{
				Provider: "kafka",
				Brokers:  "k1:9092,k2:9092",
				Topic:    "relay",
			}))
			Expect(cfg.Client.RelayTarget).To(Equal("http://myhost:9090"))
			Expect(cfg.Log.JSON).To(BeTrue())
			Expect(cfg.Log.Pretty).To(BeTrue())
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig(`[relay]
upstream = "http://backend:8000"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Relay.Upstream).To(Equal("http://backend:8000"))
			Expect(cfg.Relay.Listen).To(Equal(defaults.Relay.Listen))
			Expect(cfg.Relay.ChatPath).To(Equal(defaults.Relay.ChatPath))
			Expect(cfg.Relay.MaxBodyBytes).To(Equal(defaults.Relay.MaxBodyBytes))
			Expect(cfg.Storage.Driver).To(Equal(config.StorageDriverInMemory))
			Expect(cfg.EventStream.Provider).To(Equal(config.EventStreamNop))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("this is not valid toml [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 999\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 999")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk with owner-only permissions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Relay.Upstream = "http://saved:8000"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string config key", func() {
			Expect(c.SetConfigValue("relay.upstream", "http://other:8000")).To(Succeed())

			v, err := c.GetConfigValue("relay.upstream")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("http://other:8000"))
		})

		It("sets a bool config key", func() {
			Expect(c.SetConfigValue("relay.flush_trailing", "true")).To(Succeed())

			v, err := c.GetConfigValue("relay.flush_trailing")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("true"))
		})

		It("rejects an invalid bool", func() {
			err := c.SetConfigValue("log.json", "sometimes")
			Expect(err).To(MatchError(ContainSubstring("invalid value for log.json")))
		})

		It("validates durations", func() {
			Expect(c.SetConfigValue("relay.timeout", "90s")).To(Succeed())
			Expect(c.SetConfigValue("relay.timeout", "soon")).To(MatchError(ContainSubstring("invalid value for relay.timeout")))
			Expect(c.SetConfigValue("relay.timeout", "-1s")).To(HaveOccurred())
		})

		It("validates body limits", func() {
			Expect(c.SetConfigValue("relay.max_body_bytes", "2048")).To(Succeed())
			Expect(c.SetConfigValue("relay.max_body_bytes", "0")).To(HaveOccurred())
			Expect(c.SetConfigValue("relay.max_body_bytes", "lots")).To(HaveOccurred())
		})

		It("validates enumerated keys", func() {
			Expect(c.SetConfigValue("storage.driver", "postgres")).To(Succeed())
			Expect(c.SetConfigValue("storage.driver", "mongo")).To(HaveOccurred())
			Expect(c.SetConfigValue("eventstream.provider", "kafka")).To(Succeed())
			Expect(c.SetConfigValue("eventstream.provider", "nats")).To(HaveOccurred())
		})

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.listen", ":1")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("relay.listen", ":4000")).To(Succeed())
			Expect(c.SetConfigValue("client.relay_target", "http://localhost:4000")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Relay.Listen).To(Equal(":4000"))
			Expect(cfg.Client.RelayTarget).To(Equal("http://localhost:4000"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("relay.chat_path")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("/chat"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("storage.sqlite_path")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nonexistent.key")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns every key once, relay section first", func() {
		keys := config.ValidConfigKeys()

		Expect(keys).To(HaveLen(18))
		Expect(keys[0]).To(Equal("relay.listen"))
		Expect(keys).To(ContainElements("storage.driver", "eventstream.topic", "log.pretty"))

		seen := map[string]bool{}
		for _, k := range keys {
			Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
			seen[k] = true
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("relay")).To(BeFalse())
		Expect(config.IsValidConfigKey("proxy.upstream")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns defaults for local", func() {
		cfg, err := config.PresetConfig("local")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("selects sqlite storage", func() {
		cfg, err := config.PresetConfig("SQLite")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal(config.StorageDriverSQLite))
		Expect(cfg.Storage.SQLitePath).NotTo(BeEmpty())
	})

	It("selects postgres storage with kafka events", func() {
		cfg, err := config.PresetConfig("postgres")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal(config.StorageDriverPostgres))
		Expect(cfg.EventStream.Provider).To(Equal(config.EventStreamKafka))
		Expect(cfg.Log.JSON).To(BeTrue())
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("mainframe")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})
})

var _ = Describe("TimeoutDuration", func() {
	It("parses the configured timeout", func() {
		cfg := config.NewDefaultConfig()
		cfg.Relay.Timeout = "45s"

		d, err := cfg.TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(45 * time.Second))
	})

	It("falls back to five minutes", func() {
		cfg := &config.Config{}

		d, err := cfg.TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(5 * time.Minute))
	})
})

var _ = Describe("DefaultConfigValue", func() {
	It("returns the built-in default", func() {
		Expect(config.DefaultConfigValue("relay.listen")).To(Equal(":3000"))
		Expect(config.DefaultConfigValue("relay.flush_trailing")).To(Equal("false"))
		Expect(config.DefaultConfigValue("log.file")).To(BeEmpty())
	})

	It("rejects unknown keys", func() {
		_, err := config.DefaultConfigValue("relay")
		Expect(err).To(MatchError(ContainSubstring("unknown config key")))
	})
})
