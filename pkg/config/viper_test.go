package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("relay.listen")).To(Equal(defaults.Relay.Listen))
		Expect(v.GetString("relay.upstream")).To(Equal(defaults.Relay.Upstream))
		Expect(v.GetInt64("relay.max_body_bytes")).To(Equal(defaults.Relay.MaxBodyBytes))
		Expect(v.GetString("storage.driver")).To(Equal(defaults.Storage.Driver))
		Expect(v.GetString("client.relay_target")).To(Equal(defaults.Client.RelayTarget))
		Expect(v.GetBool("relay.flush_trailing")).To(BeFalse())
	})

	It("reads config file values over defaults", func() {
		data := `[relay]
upstream = "http://backend:8000"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("relay.upstream")).To(Equal("http://backend:8000"))
		Expect(v.GetString("relay.listen")).To(Equal(config.NewDefaultConfig().Relay.Listen))
	})

	It("env vars take precedence over config file values", func() {
		data := `[relay]
upstream = "http://backend:8000"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("CHATRELAY_RELAY_UPSTREAM", "http://env:8000")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("relay.upstream")).To(Equal("http://env:8000"))
	})
})

var _ = Describe("Flags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via the registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("relay.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[relay]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("relay.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("relay.listen")).To(Equal(config.NewDefaultConfig().Relay.Listen))
	})

	It("AddStringFlag pulls name, shorthand, and default from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &target)

		f := cmd.Flags().Lookup("relay-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("t"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.RelayTarget))
	})

	It("AddBoolFlag registers bool flags", func() {
		cmd := &cobra.Command{Use: "test"}
		var flush bool
		config.AddBoolFlag(cmd, config.Flags, config.FlagFlushTrailing, &flush)

		f := cmd.Flags().Lookup("flush-trailing")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("false"))
	})

	It("maps every registered flag to a known config key", func() {
		for _, f := range config.Flags {
			Expect(config.IsValidConfigKey(f.ViperKey)).To(BeTrue(), f.Name)
		}
	})
})
