package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := []string{}
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "chatrelay-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// A local .chatrelay dir takes precedence over the home directory.
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".chatrelay"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("writes config.toml", func() {
			Expect(execute("set", "relay.upstream", "http://backend:8000")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".chatrelay", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`upstream = "http://backend:8000"`))
			Expect(out.String()).To(ContainSubstring("relay.upstream"))
		})

		It("rejects unknown keys", func() {
			err := execute("set", "relay.provider", "openai")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown config key"))
		})

		It("rejects invalid values", func() {
			Expect(execute("set", "relay.timeout", "soon")).NotTo(Succeed())
			Expect(execute("set", "relay.flush_trailing", "maybe")).NotTo(Succeed())
			Expect(execute("set", "storage.driver", "mongodb")).NotTo(Succeed())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "relay.upstream")).NotTo(Succeed())
		})
	})

	Describe("get subcommand", func() {
		It("reads back a value that was set", func() {
			Expect(execute("set", "relay.flush_trailing", "true")).To(Succeed())

			out.Reset()
			Expect(execute("get", "relay.flush_trailing")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("true"))
		})

		It("reports defaults for unset keys", func() {
			Expect(execute("get", "relay.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":3000"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "nope")).NotTo(Succeed())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(execute("set", "eventstream.topic", "relay.events")).To(Succeed())

			out.Reset()
			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Using config file:"))
			Expect(out.String()).To(MatchRegexp(`eventstream\.topic\s+= "relay\.events"`))
			Expect(out.String()).To(MatchRegexp(`storage\.sqlite_path\s+= <not set>`))
			Expect(out.String()).To(ContainSubstring("client.relay_target"))
			Expect(out.String()).To(MatchRegexp(`relay\.listen\s+= ":3000" \(default\)`))
		})

		It("hides defaults with --changed", func() {
			Expect(execute("set", "relay.upstream", "http://backend:9000")).To(Succeed())

			out.Reset()
			Expect(execute("list", "--changed")).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`relay\.upstream\s+= "http://backend:9000"\n`))
			Expect(out.String()).NotTo(ContainSubstring("relay.listen"))
		})

		It("reports when nothing differs from the defaults", func() {
			Expect(execute("list", "--changed")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("All values are defaults."))
		})
	})
})
