package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved paths for the engine's on-disk layout.
// Projects live under <Projects>/<project_id>/; engine state under <Home>.
type Paths struct {
	Home     string // .rdm directory
	Var      string // .rdm/var
	Logs     string // .rdm/var/logs
	Projects string // projects directory holding one workspace per project

	// Key files
	Settings string // .rdm/setting.json
	DB       string // .rdm/var/rdm.db
	RunLock  string // .rdm/var/run.lock
}

// ResolvePaths returns all paths based on the RDM_HOME environment variable
func ResolvePaths() Paths {
	home := os.Getenv("RDM_HOME")
	if home == "" {
		home = ".rdm"
	}

	projects := os.Getenv("RDM_PROJECTS_DIR")
	if projects == "" {
		projects = "projects"
	}

	p := Paths{
		Home:     home,
		Var:      filepath.Join(home, "var"),
		Projects: projects,
	}

	p.Logs = filepath.Join(p.Var, "logs")
	p.Settings = filepath.Join(p.Home, "setting.json")
	p.DB = filepath.Join(p.Var, "rdm.db")
	p.RunLock = filepath.Join(p.Var, "run.lock")

	return p
}

// ProjectDir returns the workspace directory for a project id.
func (p Paths) ProjectDir(projectID string) string {
	return filepath.Join(p.Projects, projectID)
}

// ProjectSpecPath returns the project.yaml path for a project id.
func (p Paths) ProjectSpecPath(projectID string) string {
	return filepath.Join(p.ProjectDir(projectID), "project.yaml")
}

// EnsureDirs creates the engine's own directories.
func EnsureDirs(p Paths) error {
	for _, dir := range []string{p.Home, p.Var, p.Logs, p.Projects} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
