// Package versioncmder prints chatrelay build metadata.
package versioncmder

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/utils"
)

// BuildInfo is the machine readable form printed by --json.
type BuildInfo struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	BuiltAt   string `json:"built_at"`
	GoVersion string `json:"go_version"`
}

type versionCommander struct {
	out     io.Writer
	short   bool
	jsonOut bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version and build metadata of the chatrelay binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print build metadata as JSON")
	cmd.MarkFlagsMutuallyExclusive("short", "json")

	return cmd
}

func currentBuild() BuildInfo {
	return BuildInfo{
		Version:   utils.Version,
		Sha:       utils.Sha,
		BuiltAt:   utils.Buildtime,
		GoVersion: runtime.Version(),
	}
}

func (c *versionCommander) run() error {
	info := currentBuild()

	switch {
	case c.short:
		_, err := fmt.Fprintln(c.out, info.Version)
		return err
	case c.jsonOut:
		return json.NewEncoder(c.out).Encode(info)
	}

	_, err := fmt.Fprintf(c.out, "Version: %s\nSha: %s\nBuilt at: %s\nGo: %s\n",
		info.Version, info.Sha, info.BuiltAt, info.GoVersion)
	return err
}
