package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "ih5", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ChainName("experiment42"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ChainUUID", func(t *testing.T) {
		attr := ChainUUID("3fa85f64-5717-4562-b3fc-2c963f66afa6")
		assert.Equal(t, AttrChainUUID, string(attr.Key))
		assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", attr.Value.AsString())
	})

	t.Run("ChainName", func(t *testing.T) {
		attr := ChainName("experiment42")
		assert.Equal(t, AttrChainName, string(attr.Key))
		assert.Equal(t, "experiment42", attr.Value.AsString())
	})

	t.Run("PatchIndex", func(t *testing.T) {
		attr := PatchIndex(3)
		assert.Equal(t, AttrPatchIndex, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("PatchUUID", func(t *testing.T) {
		attr := PatchUUID("abcd1234")
		assert.Equal(t, AttrPatchUUID, string(attr.Key))
		assert.Equal(t, "abcd1234", attr.Value.AsString())
	})

	t.Run("FilePath", func(t *testing.T) {
		attr := FilePath("/data/experiment42.p0003.ih5")
		assert.Equal(t, AttrFilePath, string(attr.Key))
		assert.Equal(t, "/data/experiment42.p0003.ih5", attr.Value.AsString())
	})

	t.Run("OpenMode", func(t *testing.T) {
		attr := OpenMode("r+")
		assert.Equal(t, AttrOpenMode, string(attr.Key))
		assert.Equal(t, "r+", attr.Value.AsString())
	})

	t.Run("NodePath", func(t *testing.T) {
		attr := NodePath("/measurements/run1")
		assert.Equal(t, AttrNodePath, string(attr.Key))
		assert.Equal(t, "/measurements/run1", attr.Value.AsString())
	})

	t.Run("NodeKind", func(t *testing.T) {
		attr := NodeKind("dataset")
		assert.Equal(t, AttrNodeKind, string(attr.Key))
		assert.Equal(t, "dataset", attr.Value.AsString())
	})

	t.Run("Hashsum", func(t *testing.T) {
		attr := Hashsum("sha256:deadbeef")
		assert.Equal(t, AttrHashsum, string(attr.Key))
		assert.Equal(t, "sha256:deadbeef", attr.Value.AsString())
	})

	t.Run("ManifestUUID", func(t *testing.T) {
		attr := ManifestUUID("abc123")
		assert.Equal(t, AttrManifestID, string(attr.Key))
		assert.Equal(t, "abc123", attr.Value.AsString())
	})

	t.Run("IsStub", func(t *testing.T) {
		attr := IsStub(true)
		assert.Equal(t, AttrIsStub, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("Bucket", func(t *testing.T) {
		attr := Bucket("my-bucket")
		assert.Equal(t, AttrBucket, string(attr.Key))
		assert.Equal(t, "my-bucket", attr.Value.AsString())
	})

	t.Run("StorageKey", func(t *testing.T) {
		attr := StorageKey("path/to/object")
		assert.Equal(t, AttrKey, string(attr.Key))
		assert.Equal(t, "path/to/object", attr.Value.AsString())
	})

	t.Run("DBType", func(t *testing.T) {
		attr := DBType("sqlite")
		assert.Equal(t, AttrDBType, string(attr.Key))
		assert.Equal(t, "sqlite", attr.Value.AsString())
	})
}

func TestStartChainSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartChainSpan(ctx, SpanChainOpen, "experiment42")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartChainSpan(ctx, SpanChainCommitPatch, "experiment42", PatchIndex(3))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartOverlaySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartOverlaySpan(ctx, SpanOverlayResolve, "/measurements/run1")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartOverlaySpan(ctx, SpanOverlaySet, "/measurements/run1", NodeKind("dataset"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartCatalogSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartCatalogSpan(ctx, "sync")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartArchiveSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartArchiveSpan(ctx, "mirror", Bucket("my-bucket"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
