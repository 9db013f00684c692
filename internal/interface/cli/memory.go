package cli

import (
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/infra/persistence/sqlite"
	"github.com/rdmlabs/rdm-engine/internal/memory"
)

func newMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memory [goal]",
		Short: "Print project memory; with a goal, show the related entries a planner would see",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMemoryDB()
			if err != nil {
				return err
			}
			defer db.Close()
			repo := sqlite.NewMemoryRepository(db)

			if len(args) == 1 {
				text, err := memory.New(repo).Context(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if text == "" {
					fmt.Fprintln(os.Stdout, "No related project memory for this goal.")
					return nil
				}
				fmt.Fprintln(os.Stdout, text)
				return nil
			}

			entries, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(os.Stdout, "No project memory recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tASSESSMENT\tBLOCKING\tUPDATED\tGOAL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
					e.ProjectID, e.OverallAssessment, e.HasBlocking,
					e.UpdatedAt.Format("2006-01-02 15:04"), e.Goal)
			}
			return w.Flush()
		},
	}
}

func openMemoryDB() (*sql.DB, error) {
	paths := app.ResolvePaths()
	db, err := sql.Open("sqlite3", paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.NewMigrator(db).Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
