package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rdmlabs/rdm-engine/internal/agents"
	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/github"
	"github.com/rdmlabs/rdm-engine/internal/infra/fs"
	"github.com/rdmlabs/rdm-engine/internal/infra/persistence/sqlite"
	"github.com/rdmlabs/rdm-engine/internal/llm"
	"github.com/rdmlabs/rdm-engine/internal/memory"
	"github.com/rdmlabs/rdm-engine/internal/orchestrator"
	"github.com/rdmlabs/rdm-engine/internal/pkg/slug"
	"github.com/rdmlabs/rdm-engine/internal/project"
	"github.com/rdmlabs/rdm-engine/internal/publisher"
	"github.com/rdmlabs/rdm-engine/internal/safety"
	"github.com/rdmlabs/rdm-engine/internal/secret"
	"github.com/rdmlabs/rdm-engine/internal/shell"
	"github.com/rdmlabs/rdm-engine/internal/storage"
	"github.com/rdmlabs/rdm-engine/internal/worker"
)

func newRunCmd() *cobra.Command {
	var projectName string
	var mode string

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Run the full plan/execute/review/repair cycle for a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectName == "" {
				return fmt.Errorf("project name is required (use -n)")
			}
			return runGoal(cmd.Context(), args[0], projectName, mode)
		},
	}
	cmd.Flags().StringVarP(&projectName, "name", "n", "", "Project name (required)")
	cmd.Flags().StringVar(&mode, "mode", "pipeline", "Execution mode (pipeline or simple)")
	return cmd
}

func runGoal(ctx context.Context, goal, projectName, mode string) error {
	cfg := globalConfig
	logger := app.GetLogger()
	fsys := afero.NewOsFs()

	paths := app.ResolvePaths()
	if err := app.EnsureDirs(paths); err != nil {
		return fmt.Errorf("prepare engine directories: %w", err)
	}

	// One orchestrator run at a time per engine home.
	release, err := fs.AcquireLock(paths.RunLock)
	if err != nil {
		return err
	}
	defer release()

	specPath := paths.ProjectSpecPath(projectName)
	if _, err := os.Stat(specPath); err != nil {
		return fmt.Errorf("project %s has no specification at %s (run `rdm init -n %s` first)",
			projectName, specPath, projectName)
	}

	var remote project.RemoteCreator
	var ghClient *github.Client
	if cfg.GitHubToken() != "" && cfg.GitHubOwner() != "" {
		ghClient, err = github.NewClient(ctx, cfg.GitHubToken(), cfg.GitHubOwner())
		if err != nil {
			return err
		}
		if cfg.AutoCreateRemote() {
			remote = ghClient
		}
	}

	initResult, err := project.Initialize(ctx, fsys, paths.Projects, projectName, goal, project.InitOptions{
		Mode:   mode,
		Remote: remote,
	})
	if err != nil {
		return err
	}
	projectDir := initResult.ProjectDir
	sessionID := initResult.Session.SessionID

	runNumber, err := project.NextRunNumber(fsys, projectDir)
	if err != nil {
		return err
	}
	logger.Info("run %d for project %s (session %s)", runNumber, projectName, sessionID)

	db, err := sql.Open("sqlite3", paths.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := sqlite.NewMigrator(db).Migrate(); err != nil {
		return err
	}
	runRepo := sqlite.NewRunRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)
	mem := memory.New(sqlite.NewMemoryRepository(db))

	gateway, err := llm.NewGateway(cfg)
	if err != nil {
		return err
	}
	if err := gateway.HealthCheck(ctx); err != nil {
		return fmt.Errorf("agent backend not available: %w", err)
	}

	complexity := agents.NewClassifier(gateway, cfg.CheapModel()).Classify(ctx, goal)
	logger.Info("goal classified as %s", complexity)

	memoryContext, err := mem.Context(ctx, goal)
	if err != nil {
		logger.Warn("memory lookup failed: %v", err)
	}
	if campaign := project.CampaignContext(fsys, projectDir); campaign != "" {
		logger.Info("project belongs to a campaign, adding it to planner context")
		if memoryContext != "" {
			memoryContext += "\n"
		}
		memoryContext += campaign
	}

	safetyGate, err := safety.NewGate(projectDir)
	if err != nil {
		return err
	}
	broker := secret.NewBroker(
		secret.NewEnvFileStore(fsys, filepath.Join(projectDir, ".env")),
		secret.HiddenPrompter{},
	)
	stepRunner := worker.New(
		gateway,
		safetyGate,
		shell.NewExecutor(cfg.CommandTimeout()),
		broker,
		worker.Options{
			Model:    cfg.Model(),
			MaxTurns: cfg.MaxWorkerTurns(),
			Budget:   cfg.TranscriptBudget(),
		},
	)

	var pub orchestrator.StepPublisher
	if ghClient != nil {
		pub = publisher.New(ghClient, cfg, sessionID)
	}

	orch := orchestrator.New(
		agents.NewPlanner(gateway, cfg.Model()),
		agents.NewReviewer(gateway, cfg.Model()),
		stepRunner,
		orchestrator.Options{
			Publisher:  pub,
			MaxRepairs: cfg.MaxRepairAttempts(),
		},
	)

	startedAt := time.Now().UTC()
	if err := sessionRepo.Save(ctx, &sqlite.SessionRecord{
		SessionID: sessionID,
		ProjectID: projectName,
		Goal:      goal,
		Status:    "running",
		Mode:      mode,
		StartedAt: startedAt,
	}); err != nil {
		logger.Warn("failed to record session: %v", err)
	}

	summary, runErr := orch.Run(ctx, orchestrator.Request{
		Goal:          goal,
		ProjectID:     projectName,
		ProjectDir:    projectDir,
		MemoryContext: memoryContext,
	})

	completedAt := time.Now().UTC()
	sessionStatus := "completed"
	if runErr != nil {
		sessionStatus = "failed"
	}
	if err := sessionRepo.Save(ctx, &sqlite.SessionRecord{
		SessionID:   sessionID,
		ProjectID:   projectName,
		Goal:        goal,
		Status:      sessionStatus,
		Mode:        mode,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}); err != nil {
		logger.Warn("failed to update session: %v", err)
	}
	if runErr != nil {
		return runErr
	}

	if err := runRepo.Save(ctx, summary); err != nil {
		logger.Warn("failed to store run summary: %v", err)
	}

	runName := fmt.Sprintf("%s-%s", slug.Make(goal, 50, "task"), completedAt.Format("2006-01-02"))
	if err := mem.RecordRun(ctx, summary, filepath.Join(projectDir, "runs", runName+".json")); err != nil {
		logger.Warn("failed to update memory index: %v", err)
	}

	if err := archiveSummary(ctx, fsys, paths.Var, summary, runName); err != nil {
		logger.Warn("failed to archive run: %v", err)
	}

	fmt.Fprintf(os.Stdout, "Run finished: status=%s repair_attempts=%d steps=%d\n",
		summary.Status, summary.RepairAttempts, len(summary.ExecutionResults))
	fmt.Fprintf(os.Stdout, "Summary: %s/PROJECT_INFO.json\n", projectDir)
	return nil
}

// archiveSummary ships the summary to S3 when a bucket is configured,
// otherwise to the engine's local var directory.
func archiveSummary(ctx context.Context, fsys afero.Fs, localBase string, summary *run.Summary, runName string) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	var gw storage.Gateway
	if bucket := globalConfig.ArchiveBucket(); bucket != "" {
		gw, err = storage.NewS3Gateway(ctx, storage.S3Config{
			Bucket: bucket,
			Prefix: globalConfig.ArchivePrefix(),
			Region: globalConfig.ArchiveRegion(),
		})
		if err != nil {
			return err
		}
	} else {
		gw = storage.NewLocalGateway(fsys, localBase)
	}

	location, err := gw.ArchiveRun(ctx, summary.ProjectID, runName, payload)
	if err != nil {
		return err
	}
	app.GetLogger().Info("run archived at %s", location)
	return nil
}
