// Package cli wires the engine's commands: run, init, gate, and memory.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rdmlabs/rdm-engine/internal/app/config"
	"github.com/rdmlabs/rdm-engine/internal/buildinfo"
	infraConfig "github.com/rdmlabs/rdm-engine/internal/infra/config"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig config.Config

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rdm",
		Short:   "Autonomous agent execution engine",
		Version: buildinfo.GetVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Priority: setting.json > ENV > defaults
			baseDir := ".rdm"
			if home := os.Getenv("RDM_HOME"); home != "" {
				baseDir = home
			}

			cfg, err := infraConfig.LoadSettings(baseDir)
			if err != nil {
				// Continue with defaults if loading fails
				cfg = config.NewAppConfig(config.Values{})
			}
			globalConfig = cfg
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newGateCmd())
	cmd.AddCommand(newMemoryCmd())
	return cmd
}
