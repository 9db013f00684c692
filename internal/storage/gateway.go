// Package storage archives completed run summaries outside the workspace,
// either on the local filesystem or in S3.
package storage

import "context"

// Gateway archives run artifacts. Keys are scoped per project; ArchiveRun
// returns the storage path the artifact landed at.
type Gateway interface {
	ArchiveRun(ctx context.Context, projectID, runName string, payload []byte) (string, error)
	LoadRun(ctx context.Context, projectID, runName string) ([]byte, error)
	ListRuns(ctx context.Context, projectID string) ([]string, error)
}
