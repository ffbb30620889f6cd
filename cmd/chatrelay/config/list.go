package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key with its current value. Values that match
the built-in default are marked; --changed hides them.

Examples:
  chatrelay config list
  chatrelay config list --changed`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	var changedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, changedOnly)
		},
	}

	cmd.Flags().BoolVar(&changedOnly, "changed", false, "Only show values that differ from the defaults")

	return cmd
}

func runList(w io.Writer, configDir string, changedOnly bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "Using config file: %s\n\n", target)
	} else {
		fmt.Fprint(w, "No config file found. Using default config.\n\n")
	}

	type row struct {
		key, value string
		isDefault  bool
	}

	var rows []row
	width := 0
	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		def, err := config.DefaultConfigValue(key)
		if err != nil {
			return err
		}
		if changedOnly && value == def {
			continue
		}
		rows = append(rows, row{key: key, value: value, isDefault: value == def})
		width = max(width, len(key))
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "All values are defaults.")
		return nil
	}

	for _, r := range rows {
		switch {
		case r.value == "":
			fmt.Fprintf(w, "%-*s = <not set>\n", width, r.key)
		case r.isDefault:
			fmt.Fprintf(w, "%-*s = %q (default)\n", width, r.key, r.value)
		default:
			fmt.Fprintf(w, "%-*s = %q\n", width, r.key, r.value)
		}
	}

	return nil
}
