package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/github"
	"github.com/rdmlabs/rdm-engine/internal/project"
)

func newInitCmd() *cobra.Command {
	var projectID string
	var mode string
	var noRemote bool

	cmd := &cobra.Command{
		Use:   "init -n <project> [goal]",
		Short: "Initialize a project workspace without running a goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := globalConfig
			if projectID == "" {
				return fmt.Errorf("project name is required (use -n)")
			}
			goal := ""
			if len(args) > 0 {
				goal = args[0]
			}

			paths := app.ResolvePaths()
			if err := app.EnsureDirs(paths); err != nil {
				return err
			}

			var remote project.RemoteCreator
			if !noRemote && cfg.AutoCreateRemote() && cfg.GitHubToken() != "" && cfg.GitHubOwner() != "" {
				client, err := github.NewClient(ctx, cfg.GitHubToken(), cfg.GitHubOwner())
				if err != nil {
					return err
				}
				remote = client
			}

			result, err := project.Initialize(ctx, afero.NewOsFs(), paths.Projects, projectID, goal, project.InitOptions{
				Mode:   mode,
				Remote: remote,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Project %s initialized at %s\n", projectID, result.ProjectDir)
			fmt.Fprintf(os.Stdout, "Session: %s\n", result.Session.SessionID)
			if result.RemoteURL != "" {
				fmt.Fprintf(os.Stdout, "Remote: %s\n", result.RemoteURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "name", "n", "", "Project name (required)")
	cmd.Flags().StringVar(&mode, "mode", "pipeline", "Execution mode (pipeline or simple)")
	cmd.Flags().BoolVar(&noRemote, "no-remote", false, "Skip remote repository creation")
	return cmd
}
