package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the S3 client the gateway uses. The interface
// allows mocking in tests without an actual S3 connection.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Config holds S3 archive configuration.
type S3Config struct {
	Bucket string
	Prefix string // optional key prefix, e.g. "rdm/prod"
	Region string // optional, empty uses the default chain
}

// S3Gateway archives runs under
// s3://<bucket>/<prefix>/projects/<projectID>/runs/<runName>.json.
type S3Gateway struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Gateway creates a gateway using ambient AWS credentials.
func NewS3Gateway(ctx context.Context, cfg S3Config) (*S3Gateway, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	return &S3Gateway{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// NewS3GatewayWithClient injects a custom client, primarily for tests.
func NewS3GatewayWithClient(client S3API, bucket, prefix string) *S3Gateway {
	return &S3Gateway{client: client, bucket: bucket, prefix: prefix}
}

// ArchiveRun uploads one run summary.
func (g *S3Gateway) ArchiveRun(ctx context.Context, projectID, runName string, payload []byte) (string, error) {
	key := g.runKey(projectID, runName)
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload run archive: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", g.bucket, key), nil
}

// LoadRun downloads one archived run summary.
func (g *S3Gateway) LoadRun(ctx context.Context, projectID, runName string) ([]byte, error) {
	key := g.runKey(projectID, runName)
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download run archive %s: %w", key, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read run archive %s: %w", key, err)
	}
	return payload, nil
}

// ListRuns returns the archived run names of one project.
func (g *S3Gateway) ListRuns(ctx context.Context, projectID string) ([]string, error) {
	prefix := g.buildKey("projects", projectID, "runs") + "/"
	out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list run archives: %w", err)
	}

	var names []string
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		name := strings.TrimPrefix(key, prefix)
		name = strings.TrimSuffix(name, ".json")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (g *S3Gateway) runKey(projectID, runName string) string {
	return g.buildKey("projects", projectID, "runs", runName+".json")
}

func (g *S3Gateway) buildKey(parts ...string) string {
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	return path.Join(parts...)
}
