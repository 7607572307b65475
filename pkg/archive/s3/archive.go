// Package s3 mirrors committed container files and their manifest sidecars
// to an S3-compatible bucket. It is invoked as an optional post-commit hook
// by the ih5ctl patch commit and merge commands, never from the read/write hot
// path: an archive upload failure never fails the commit it follows.
//
// Objects are named <chain_uuid>/<patch_uuid>.ih5 (and the sidecar,
// <chain_uuid>/<patch_uuid>.ih5.mf.json) and are never overwritten or
// deleted, matching the append-only invariant of the container format
// itself. The mirror assumes the bucket enforces its own Object Lock/WORM
// retention policy; this package does not attempt to enforce immutability
// itself.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/config"
	"github.com/metador-go/ih5/pkg/metrics"
)

// Mirror uploads committed container files to an S3-compatible bucket.
type Mirror struct {
	client  *s3.Client
	bucket  string
	prefix  string
	metrics metrics.ArchiveMetrics
}

// newMirror builds a Mirror around an already-configured S3 client, letting
// tests point it at a local S3-compatible endpoint without going through
// AWS's default credential chain.
func newMirror(client *s3.Client, bucket, prefix string) *Mirror {
	return &Mirror{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		metrics: metrics.NewArchiveMetrics(),
	}
}

// New creates a Mirror from cfg. It returns (nil, nil) when archiving is
// disabled, so callers can unconditionally hold a *Mirror and nil-check it
// before use rather than branching on cfg.Enabled everywhere.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newMirror(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

func (m *Mirror) key(chainUUID, patchUUID, suffix string) string {
	return fmt.Sprintf("%s%s/%s.ih5%s", m.prefix, chainUUID, patchUUID, suffix)
}

// ArchivePatch uploads a committed container file and, if present, its
// manifest sidecar. containerPath must point at an already-committed
// (read-only) tail; archiving a writable tail would race the next patch's
// writes.
func (m *Mirror) ArchivePatch(ctx context.Context, chainUUID, patchUUID, containerPath, manifestPath string) (err error) {
	ctx, span := telemetry.StartArchiveSpan(ctx, "archive_patch",
		telemetry.Bucket(m.bucket), telemetry.ChainUUID(chainUUID), telemetry.PatchUUID(patchUUID))
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
		span.End()
	}()

	if err := m.uploadFile(ctx, containerPath, m.key(chainUUID, patchUUID, "")); err != nil {
		return fmt.Errorf("archiving container file: %w", err)
	}

	if _, statErr := os.Stat(manifestPath); statErr == nil {
		if err := m.uploadFile(ctx, manifestPath, m.key(chainUUID, patchUUID, ".mf.json")); err != nil {
			return fmt.Errorf("archiving manifest sidecar: %w", err)
		}
	}
	return nil
}

func (m *Mirror) uploadFile(ctx context.Context, path, key string) error {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.ObserveUpload(m.metrics, key, time.Since(start), 0, err)
		return err
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	metrics.ObserveUpload(m.metrics, key, time.Since(start), int64(len(data)), err)
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// Fetch downloads an archived object, for disaster-recovery restores.
func (m *Mirror) Fetch(ctx context.Context, chainUUID, patchUUID string) ([]byte, error) {
	start := time.Now()
	key := m.key(chainUUID, patchUUID, "")

	resp, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.ObserveOperation(m.metrics, "fetch", time.Since(start), err)
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.ObserveOperation(m.metrics, "fetch", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("reading s3 object body: %w", err)
	}
	return data, nil
}
