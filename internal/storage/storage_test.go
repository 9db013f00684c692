package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3GatewayRoundTrip(t *testing.T) {
	g := NewS3GatewayWithClient(NewMockS3Client(), "rdm-archive", "rdm/prod")
	ctx := context.Background()

	payload := []byte(`{"goal": "build a thing"}`)
	location, err := g.ArchiveRun(ctx, "demo", "build-2026-08-29", payload)
	require.NoError(t, err)
	assert.Equal(t, "s3://rdm-archive/rdm/prod/projects/demo/runs/build-2026-08-29.json", location)

	loaded, err := g.LoadRun(ctx, "demo", "build-2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, payload, loaded)

	_, err = g.LoadRun(ctx, "demo", "missing")
	assert.Error(t, err)
}

func TestS3GatewayListRuns(t *testing.T) {
	g := NewS3GatewayWithClient(NewMockS3Client(), "rdm-archive", "")
	ctx := context.Background()

	_, err := g.ArchiveRun(ctx, "demo", "first-2026-08-01", []byte("{}"))
	require.NoError(t, err)
	_, err = g.ArchiveRun(ctx, "demo", "second-2026-08-15", []byte("{}"))
	require.NoError(t, err)
	_, err = g.ArchiveRun(ctx, "other", "unrelated-2026-08-20", []byte("{}"))
	require.NoError(t, err)

	names, err := g.ListRuns(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-2026-08-01", "second-2026-08-15"}, names)
}

func TestLocalGatewayRoundTrip(t *testing.T) {
	g := NewLocalGateway(afero.NewMemMapFs(), "/archive")
	ctx := context.Background()

	payload := []byte(`{"goal": "build a thing"}`)
	location, err := g.ArchiveRun(ctx, "demo", "build-2026-08-29", payload)
	require.NoError(t, err)
	assert.Contains(t, location, "projects/demo/runs/build-2026-08-29.json")

	loaded, err := g.LoadRun(ctx, "demo", "build-2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, payload, loaded)

	names, err := g.ListRuns(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"build-2026-08-29"}, names)

	empty, err := g.ListRuns(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
