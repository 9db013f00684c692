package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalGateway archives runs under <baseDir>/projects/<projectID>/runs/.
// It is the default when no archive bucket is configured.
type LocalGateway struct {
	fsys    afero.Fs
	baseDir string
}

// NewLocalGateway creates a filesystem-backed archive.
func NewLocalGateway(fsys afero.Fs, baseDir string) *LocalGateway {
	return &LocalGateway{fsys: fsys, baseDir: baseDir}
}

func (g *LocalGateway) runPath(projectID, runName string) string {
	return filepath.Join(g.baseDir, "projects", projectID, "runs", runName+".json")
}

// ArchiveRun writes one run summary.
func (g *LocalGateway) ArchiveRun(ctx context.Context, projectID, runName string, payload []byte) (string, error) {
	path := g.runPath(projectID, runName)
	if err := g.fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	if err := afero.WriteFile(g.fsys, path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write run archive: %w", err)
	}
	return path, nil
}

// LoadRun reads one archived run summary.
func (g *LocalGateway) LoadRun(ctx context.Context, projectID, runName string) ([]byte, error) {
	payload, err := afero.ReadFile(g.fsys, g.runPath(projectID, runName))
	if err != nil {
		return nil, fmt.Errorf("read run archive: %w", err)
	}
	return payload, nil
}

// ListRuns returns the archived run names of one project.
func (g *LocalGateway) ListRuns(ctx context.Context, projectID string) ([]string, error) {
	dir := filepath.Join(g.baseDir, "projects", projectID, "runs")
	infos, err := afero.ReadDir(g.fsys, dir)
	if err != nil {
		return nil, nil
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(info.Name(), ".json"))
	}
	return names, nil
}
