package project

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSpecCreatesFullSchema(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "projects/demo/project.yaml"

	spec, err := EnsureSpec(fsys, path, "demo", "build a thing", "pipeline")
	require.NoError(t, err)

	assert.Equal(t, "demo", spec.ProjectID)
	assert.Equal(t, "build a thing", spec.Goal)
	assert.Equal(t, "pipeline", spec.DefaultExecutionMode)
	assert.NotEmpty(t, spec.Metadata.CreatedAt)

	reloaded := LoadSpec(fsys, path)
	assert.Equal(t, spec.ProjectID, reloaded.ProjectID)
	assert.Equal(t, spec.Goal, reloaded.Goal)
}

func TestEnsureSpecEnrichesExistingNonDestructively(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "projects/demo/project.yaml"
	existing := "project_id: demo\nname: Demo Project\ngoal: original goal\nrepo:\n  url: https://github.com/acme/demo.git\n"
	require.NoError(t, afero.WriteFile(fsys, path, []byte(existing), 0o644))

	spec, err := EnsureSpec(fsys, path, "demo", "new goal", "simple")
	require.NoError(t, err)

	// Existing values survive; missing keys get defaults.
	assert.Equal(t, "Demo Project", spec.Name)
	assert.Equal(t, "original goal", spec.Goal)
	assert.Equal(t, "https://github.com/acme/demo.git", spec.Repo.URL)
	assert.Equal(t, "simple", spec.DefaultExecutionMode)
	assert.NotEmpty(t, spec.Metadata.CreatedAt)
}

func TestSpecSummarize(t *testing.T) {
	s := Spec{Name: "demo", Goal: "ship it", Extra: map[string]any{"owner": "me"}}
	out := s.Summarize()
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "ship it")
	assert.Contains(t, out, "owner")

	assert.Contains(t, Spec{}.Summarize(), "(no name)")
}

func TestSessionStateRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("projects/demo", 0o755))

	state, err := InitSessionState(fsys, "demo", "build a thing", "projects/demo", "pipeline")
	require.NoError(t, err)
	assert.Equal(t, "running", state.Status)
	assert.True(t, strings.HasPrefix(state.SessionID, "demo-"))

	loaded, err := LoadSessionState(fsys, "projects/demo")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
	assert.Equal(t, "build a thing", loaded.Goal)
}

func TestNewSessionIDUnique(t *testing.T) {
	a := NewSessionID("demo")
	b := NewSessionID("demo")
	assert.NotEqual(t, a, b)
}

func TestNextRunNumber(t *testing.T) {
	fsys := afero.NewMemMapFs()

	n, err := NextRunNumber(fsys, "projects/demo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = NextRunNumber(fsys, "projects/demo")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNextRunNumberRecoversFromCorruptState(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := filepath.Join("projects/demo", ".rdm", "state.json")
	require.NoError(t, afero.WriteFile(fsys, path, []byte("not json"), 0o644))

	n, err := NextRunNumber(fsys, "projects/demo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadCampaign(t *testing.T) {
	fsys := afero.NewMemMapFs()
	doc := "name: summer push\ngoal: ship three demos\nbudget: 100\n"
	require.NoError(t, afero.WriteFile(fsys, "campaign.yaml", []byte(doc), 0o644))

	c := LoadCampaign(fsys, "campaign.yaml")
	assert.Equal(t, "summer push", c.Name)
	assert.Contains(t, c.Summarize(), "budget")

	missing := LoadCampaign(fsys, "nope.yaml")
	assert.Empty(t, missing.Name)
}

func TestCampaignContext(t *testing.T) {
	fsys := afero.NewMemMapFs()

	// no campaign.yaml means no context line
	assert.Empty(t, CampaignContext(fsys, "projects/demo"))

	doc := "title: summer push\ndescription: ship three demos\n"
	require.NoError(t, afero.WriteFile(fsys, "projects/demo/campaign.yaml", []byte(doc), 0o644))

	got := CampaignContext(fsys, "projects/demo")
	assert.Contains(t, got, "Campaign:")
	assert.Contains(t, got, "summer push")
	assert.Contains(t, got, "ship three demos")
}

func TestInitializeLocalOnly(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	fsys := afero.NewOsFs()
	root := t.TempDir()

	result, err := Initialize(context.Background(), fsys, root, "demo", "build a thing", InitOptions{Mode: "pipeline"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "demo"), result.ProjectDir)
	assert.Empty(t, result.RemoteURL)

	for _, rel := range []string{"project.yaml", "state.json", ".gitignore", "output/.gitkeep"} {
		exists, err := afero.Exists(fsys, filepath.Join(result.ProjectDir, rel))
		require.NoError(t, err)
		assert.True(t, exists, rel)
	}

	ignore, err := afero.ReadFile(fsys, filepath.Join(result.ProjectDir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "state.json")

	// Re-initializing is idempotent and keeps the session.
	again, err := Initialize(context.Background(), fsys, root, "demo", "build a thing", InitOptions{Mode: "pipeline"})
	require.NoError(t, err)
	assert.Equal(t, result.Session.SessionID, again.Session.SessionID)
}
