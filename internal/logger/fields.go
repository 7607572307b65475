package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Chain & Operation
	// ========================================================================
	KeyOperation  = "operation"   // Operation name: open, commit_patch, merge_files, etc.
	KeyChainUUID  = "chain_uuid"  // Record/chain identity (record_uuid)
	KeyChainName  = "chain_name"  // Base filename stem shared by all files in the chain
	KeyPatchIndex = "patch_index" // Position of a file within its chain
	KeyPatchUUID  = "patch_uuid"  // Identity of a single patch file
	KeyFilePath   = "file_path"   // Path to a container file on disk

	// ========================================================================
	// Overlay / Paths
	// ========================================================================
	KeyNodePath = "node_path" // Logical path inside the virtual tree
	KeyNodeKind = "node_kind" // group, dataset, attribute_set

	// ========================================================================
	// Integrity
	// ========================================================================
	KeyHashAlg    = "hash_alg"    // Hash algorithm name (sha256, blake3, ...)
	KeyHashsum    = "hashsum"     // Qualified "alg:hex" hashsum
	KeyByteLength = "byte_length" // Number of bytes hashed or written

	// ========================================================================
	// Manifest / Stub
	// ========================================================================
	KeyManifestUUID = "manifest_uuid"
	KeyIsStub       = "is_stub"

	// ========================================================================
	// Storage backends
	// ========================================================================
	KeyBucket    = "bucket"
	KeyObjectKey = "object_key"
	KeyDBType    = "db_type"

	// ========================================================================
	// Duration
	// ========================================================================
	KeyDurationMs = "duration_ms"

	// ========================================================================
	// Errors
	// ========================================================================
	KeyError = "error"
)

// Err returns a slog.Attr for an error value. Returns an empty attr if err is nil,
// so it can be appended unconditionally without branching at call sites.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ----------------------------------------------------------------------------
// Chain / Operation
// ----------------------------------------------------------------------------

// Operation returns a slog.Attr for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// ChainUUID returns a slog.Attr for a chain identity.
func ChainUUID(id string) slog.Attr {
	return slog.String(KeyChainUUID, id)
}

// PatchIndex returns a slog.Attr for a patch's position in the chain.
func PatchIndex(idx int) slog.Attr {
	return slog.Int(KeyPatchIndex, idx)
}

// PatchUUID returns a slog.Attr for a single patch file's identity.
func PatchUUID(id string) slog.Attr {
	return slog.String(KeyPatchUUID, id)
}

// FilePath returns a slog.Attr for a container file path.
func FilePath(p string) slog.Attr {
	return slog.String(KeyFilePath, p)
}

// NodePath returns a slog.Attr for a logical overlay path.
func NodePath(p string) slog.Attr {
	return slog.String(KeyNodePath, p)
}

// Hashsum returns a slog.Attr for a qualified hashsum.
func Hashsum(h string) slog.Attr {
	return slog.String(KeyHashsum, h)
}

// ManifestUUID returns a slog.Attr for a manifest identity.
func ManifestUUID(id string) slog.Attr {
	return slog.String(KeyManifestUUID, id)
}

// DurationMsAttr returns a slog.Attr for an operation duration in milliseconds.
func DurationMsAttr(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
