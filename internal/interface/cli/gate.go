package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/gate"
	"github.com/rdmlabs/rdm-engine/internal/gitx"
)

func newGateCmd() *cobra.Command {
	var projectID string
	var paths []string
	var additions, deletions int
	var diffFile string

	cmd := &cobra.Command{
		Use:   "gate -n <project>",
		Short: "Evaluate the merge gate against a project's staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("project name is required (use -n)")
			}

			var change gate.Change
			if len(paths) > 0 || diffFile != "" {
				change = gate.Change{
					Paths:     paths,
					Additions: additions,
					Deletions: deletions,
				}
				if diffFile != "" {
					data, err := os.ReadFile(diffFile)
					if err != nil {
						return fmt.Errorf("read diff file: %w", err)
					}
					change.DiffText = string(data)
				}
			} else {
				projectDir := app.ResolvePaths().ProjectDir(projectID)
				staged, err := stagedChange(cmd.Context(), projectDir)
				if err != nil {
					return err
				}
				change = staged
			}

			report := gate.Evaluate(gate.ConfigFor(globalConfig, projectID), projectID, change)
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))

			if report.Decision == gate.DecisionBlock {
				return fmt.Errorf("change blocked by merge gate")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "name", "n", "", "Project name (required)")
	cmd.Flags().StringSliceVar(&paths, "path", nil, "Changed file path to evaluate instead of the staged diff (repeatable)")
	cmd.Flags().IntVar(&additions, "additions", 0, "Total added lines (with --path)")
	cmd.Flags().IntVar(&deletions, "deletions", 0, "Total deleted lines (with --path)")
	cmd.Flags().StringVar(&diffFile, "diff", "", "File holding a unified diff to scan (with --path)")
	return cmd
}

// stagedChange collects the staged diff from the project's git repo.
func stagedChange(ctx context.Context, projectDir string) (gate.Change, error) {
	g := gitx.NewRunner(projectDir)

	names := g.Run(ctx, "diff", "--cached", "--name-only")
	if !names.OK() {
		return gate.Change{}, fmt.Errorf("git diff --name-only failed: %s", names.Stderr)
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(names.Stdout), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}

	numstat := g.Run(ctx, "diff", "--cached", "--numstat")
	if !numstat.OK() {
		return gate.Change{}, fmt.Errorf("git diff --numstat failed: %s", numstat.Stderr)
	}
	adds, dels := 0, 0
	var binaries []string
	for _, line := range strings.Split(strings.TrimSpace(numstat.Stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		// binary files report "-" in the count columns
		if fields[0] == "-" || fields[1] == "-" {
			binaries = append(binaries, fields[2])
			continue
		}
		var a, d int
		if _, err := fmt.Sscanf(fields[0], "%d", &a); err == nil {
			adds += a
		}
		if _, err := fmt.Sscanf(fields[1], "%d", &d); err == nil {
			dels += d
		}
	}

	diff := g.Run(ctx, "diff", "--cached")

	return gate.Change{
		Paths:       paths,
		DiffText:    diff.Stdout,
		Additions:   adds,
		Deletions:   dels,
		BinaryFiles: binaries,
	}, nil
}
