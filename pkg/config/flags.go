package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents drift when the
// same logical flag appears on several commands (e.g. --relay-target on
// "chatrelay chat" and "chatrelay login").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "relay.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagUpstream       = "upstream"
	FlagChatPath       = "chat-path"
	FlagFakeStreamPath = "fake-stream-path"
	FlagLoginPath      = "login-path"
	FlagFlushTrailing  = "flush-trailing"
	FlagTimeout        = "timeout"
	FlagStorageDriver  = "storage"
	FlagSQLite         = "sqlite"
	FlagPostgres       = "postgres"
	FlagEventStream    = "eventstream"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagRelayTarget    = "relay-target"
	FlagLogJSON        = "log-json"
	FlagLogPretty      = "log-pretty"
	FlagLogFile        = "log-file"
)

// Flags is the registry shared by every chatrelay command.
var Flags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagUpstream:       {Name: "upstream", Shorthand: "u", ViperKey: "relay.upstream", Description: "Upstream chat backend URL"},
	FlagChatPath:       {Name: "chat-path", ViperKey: "relay.chat_path", Description: "Upstream path of the streaming chat endpoint"},
	FlagFakeStreamPath: {Name: "fake-stream-path", ViperKey: "relay.fake_stream_path", Description: "Upstream path of the event-stream demo endpoint"},
	FlagLoginPath:      {Name: "login-path", ViperKey: "relay.login_path", Description: "Upstream path of the credential exchange endpoint"},
	FlagFlushTrailing:  {Name: "flush-trailing", ViperKey: "relay.flush_trailing", Description: "Forward a final upstream record that lacks a newline"},
	FlagTimeout:        {Name: "timeout", ViperKey: "relay.timeout", Description: "Overall timeout for one upstream exchange"},
	FlagStorageDriver:  {Name: "storage", ViperKey: "storage.driver", Description: "Transcript storage driver (inmemory, sqlite, postgres)"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite transcript database"},
	FlagPostgres:       {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for transcripts"},
	FlagEventStream:    {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Transcript event publisher (nop, kafka)"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for transcript events"},
	FlagRelayTarget:    {Name: "relay-target", Shorthand: "t", ViperKey: "client.relay_target", Description: "Relay URL used by client commands"},
	FlagLogJSON:        {Name: "log-json", ViperKey: "log.json", Description: "Write structured JSON logs"},
	FlagLogPretty:      {Name: "log-pretty", ViperKey: "log.pretty", Description: "Write colorized human readable logs"},
	FlagLogFile:        {Name: "log-file", ViperKey: "log.file", Description: "Also append JSON logs to this file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
