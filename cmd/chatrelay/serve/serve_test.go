package servecmder

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

var _ = Describe("NewServeCmd", func() {
	It("registers every relay flag", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		for _, key := range serveFlagKeys {
			Expect(cmd.Flags().Lookup(config.Flags[key].Name)).NotTo(BeNil(), key)
		}
	})

	It("uses config defaults for flag defaults", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":3000"))
		Expect(cmd.Flags().Lookup("chat-path").DefValue).To(Equal("/chat"))
		Expect(cmd.Flags().Lookup("storage").DefValue).To(Equal(config.StorageDriverInMemory))
	})
})

var _ = Describe("serveCommander", func() {
	var tmpDir string

	// resolve runs the serve PreRunE against a config dir without starting
	// the relay.
	resolve := func(args ...string) (*serveCommander, error) {
		cmder := &serveCommander{}
		cmd := &cobra.Command{Use: "serve"}
		cmd.Flags().String("config-dir", tmpDir, "")
		for _, key := range serveFlagKeys {
			def := config.Flags[key]
			switch key {
			case config.FlagFlushTrailing, config.FlagLogJSON, config.FlagLogPretty:
				cmd.Flags().Bool(def.Name, false, def.Description)
			default:
				cmd.Flags().String(def.Name, "", def.Description)
			}
		}
		Expect(cmd.ParseFlags(args)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		if err != nil {
			return nil, err
		}
		config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
		cmder.load(v)
		return cmder, nil
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "chatrelay-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("loads defaults when no config exists", func() {
		cmder, err := resolve()
		Expect(err).NotTo(HaveOccurred())

		cfg, err := cmder.relayConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ListenAddr).To(Equal(":3000"))
		Expect(cfg.UpstreamURL).To(Equal("http://localhost:8000"))
		Expect(cfg.Timeout).To(Equal(5 * time.Minute))
		Expect(cfg.MaxBodyBytes).To(Equal(int64(4 << 20)))
		Expect(cfg.Metrics).NotTo(BeNil())
	})

	It("reads config.toml and lets flags win", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`
[relay]
upstream = "http://backend:9000"
timeout = "90s"
flush_trailing = true

[storage]
driver = "sqlite"
sqlite_path = "relay.db"
`), 0o600)).To(Succeed())

		cmder, err := resolve("--upstream", "http://override:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cmder.storageDriver).To(Equal(config.StorageDriverSQLite))
		Expect(cmder.sqlitePath).To(Equal("relay.db"))

		cfg, err := cmder.relayConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.UpstreamURL).To(Equal("http://override:1"))
		Expect(cfg.Timeout).To(Equal(90 * time.Second))
		Expect(cfg.FlushTrailing).To(BeTrue())
	})

	It("rejects an invalid timeout", func() {
		cmder, err := resolve("--timeout=-1s")
		Expect(err).NotTo(HaveOccurred())

		_, err = cmder.relayConfig()
		Expect(err).To(MatchError(ContainSubstring("invalid timeout")))
	})

	It("reads the log file from config and flag", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[log]\nfile = \"relay.log\"\n"), 0o600)).To(Succeed())

		cmder, err := resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(cmder.logFile).To(Equal("relay.log"))

		cmder, err = resolve("--log-file", "/var/log/chatrelay.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(cmder.logFile).To(Equal("/var/log/chatrelay.json"))
	})
})
