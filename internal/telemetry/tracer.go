package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for ih5 operations, following OpenTelemetry semantic
// convention style ("domain.field") where applicable.
const (
	// ========================================================================
	// Chain / file attributes
	// ========================================================================
	AttrChainUUID   = "ih5.chain_uuid"
	AttrChainName   = "ih5.chain_name"
	AttrPatchIndex  = "ih5.patch_index"
	AttrPatchUUID   = "ih5.patch_uuid"
	AttrFilePath    = "ih5.file_path"
	AttrOpenMode    = "ih5.open_mode"

	// ========================================================================
	// Overlay attributes
	// ========================================================================
	AttrNodePath = "ih5.node_path"
	AttrNodeKind = "ih5.node_kind"

	// ========================================================================
	// Integrity / manifest attributes
	// ========================================================================
	AttrHashAlg     = "ih5.hash_alg"
	AttrHashsum     = "ih5.hashsum"
	AttrManifestID  = "ih5.manifest_uuid"
	AttrIsStub      = "ih5.is_stub"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
	AttrDBType    = "db.system"
)

// Span names for ih5 operations. Format: <component>.<operation>.
const (
	SpanChainOpen         = "chain.open"
	SpanChainClose        = "chain.close"
	SpanChainCreatePatch  = "chain.create_patch"
	SpanChainCommitPatch  = "chain.commit_patch"
	SpanChainDiscardPatch = "chain.discard_patch"
	SpanChainMergeFiles   = "chain.merge_files"

	SpanOverlayResolve = "overlay.resolve"
	SpanOverlayGet     = "overlay.get"
	SpanOverlaySet     = "overlay.set"
	SpanOverlayDelete  = "overlay.delete"

	SpanSkeletonBuild   = "skeleton.build"
	SpanStubCreate      = "stub.create"
	SpanManifestBuild   = "manifest.build"
	SpanManifestValidate = "manifest.validate"

	SpanCatalogSync = "catalog.sync"
	SpanArchiveMirror = "archive.mirror"
)

// ChainUUID returns an attribute for the chain's record UUID.
func ChainUUID(id string) attribute.KeyValue {
	return attribute.String(AttrChainUUID, id)
}

// ChainName returns an attribute for the chain's base filename stem.
func ChainName(name string) attribute.KeyValue {
	return attribute.String(AttrChainName, name)
}

// PatchIndex returns an attribute for a patch's position in the chain.
func PatchIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrPatchIndex, idx)
}

// PatchUUID returns an attribute for a single patch file's identity.
func PatchUUID(id string) attribute.KeyValue {
	return attribute.String(AttrPatchUUID, id)
}

// FilePath returns an attribute for a container file path.
func FilePath(path string) attribute.KeyValue {
	return attribute.String(AttrFilePath, path)
}

// OpenMode returns an attribute for the mode a chain was opened with.
func OpenMode(mode string) attribute.KeyValue {
	return attribute.String(AttrOpenMode, mode)
}

// NodePath returns an attribute for a logical overlay path.
func NodePath(path string) attribute.KeyValue {
	return attribute.String(AttrNodePath, path)
}

// NodeKind returns an attribute for the kind of overlay node (group, dataset, attribute_set).
func NodeKind(kind string) attribute.KeyValue {
	return attribute.String(AttrNodeKind, kind)
}

// Hashsum returns an attribute for a qualified "alg:hex" hashsum.
func Hashsum(h string) attribute.KeyValue {
	return attribute.String(AttrHashsum, h)
}

// ManifestUUID returns an attribute for a manifest's identity.
func ManifestUUID(id string) attribute.KeyValue {
	return attribute.String(AttrManifestID, id)
}

// IsStub returns an attribute indicating whether a container is a stub.
func IsStub(stub bool) attribute.KeyValue {
	return attribute.Bool(AttrIsStub, stub)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region.
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// DBType returns an attribute identifying the catalog's database backend.
func DBType(t string) attribute.KeyValue {
	return attribute.String(AttrDBType, t)
}

// StartChainSpan starts a span for a chain-lifecycle operation.
func StartChainSpan(ctx context.Context, spanName, chainName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{ChainName(chainName)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartOverlaySpan starts a span for an overlay resolution/mutation operation.
func StartOverlaySpan(ctx context.Context, spanName, nodePath string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{NodePath(nodePath)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartCatalogSpan starts a span for a catalog (local chain index) operation.
func StartCatalogSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "catalog."+operation, trace.WithAttributes(attrs...))
}

// StartArchiveSpan starts a span for an S3 archival mirror operation.
func StartArchiveSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "archive."+operation, trace.WithAttributes(attrs...))
}
