package manifest

import (
	"bytes"
	"context"
	"os"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/skeleton"
	"github.com/metador-go/ih5/pkg/userblock"
)

// Commit runs the manifest-aware commit sequence of §4.9 on c's pending
// writable tail: build a fresh manifest from the new tail's skeleton, embed
// its hash and UUID into the tail's extension section, run the normal
// commit (which rewrites the user-block once more with the final payload
// hash, in the same write as the extension), then write the sidecar file
// next to the now-committed tail.
//
// exts is the caller's extension bag to embed in the manifest (may be nil).
// Only the base (the chain's first file) may end up flagged is_stub_container; this
// is never true for a normal commit — only create_stub sets it.
func Commit(c *chain.Chain, exts map[string]any) (mf *Manifest, err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanManifestBuild, c.Name())
	defer func() {
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	tail := c.Tail()
	if tail == nil {
		return nil, ih5err.New(ih5err.ErrNotOpen, "chain has no open files")
	}

	views := fileViews(c)
	mf = Build(views, tail.UserBlock(), exts)

	data, err := mf.Marshal()
	if err != nil {
		return nil, err
	}

	hashAlg := c.Config().HashAlgorithm
	sum, err := integrity.Hashsum(bytes.NewReader(data), 0, hashAlg)
	if err != nil {
		return nil, err
	}

	ext := userblock.ManifestExt{
		IsStubContainer: false,
		ManifestUUID:    mf.ManifestUUID,
		ManifestHashsum: sum,
	}
	if err := c.SetTailExtension(userblock.ManifestExtKey, ext); err != nil {
		return nil, err
	}

	tailPath := tail.Path()
	if err := c.CommitPatch(); err != nil {
		return nil, err
	}

	if err := os.WriteFile(naming.ManifestPath(tailPath), data, 0o644); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "writing manifest sidecar", err).WithPath(tailPath)
	}
	return mf, nil
}

func fileViews(c *chain.Chain) []skeleton.FileView {
	files := c.Files()
	views := make([]skeleton.FileView, len(files))
	for i, f := range files {
		views[i] = f
	}
	return views
}
