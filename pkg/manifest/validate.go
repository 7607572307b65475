package manifest

import (
	"bytes"
	"context"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/naming"
)

// ValidateTail checks the manifest-aware invariants of §3.2/§4.9 against c's
// current tail: if the tail carries a manifest extension, the sidecar file
// discovered next to it must exist, parse, and match both the embedded
// manifest_uuid and manifest_hashsum. A chain with no manifest extension on
// its tail is not manifest-aware and passes trivially. It also rejects any
// non-base file in the chain that claims is_stub_container.
func ValidateTail(c *chain.Chain) (err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanManifestValidate, c.Name())
	defer func() {
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	files := c.Files()
	for i, f := range files {
		ext, ok, err := DecodeExt(f.UserBlock())
		if err != nil {
			return err
		}
		if ok && ext.IsStubContainer && i != 0 {
			return ih5err.Newf(ih5err.ErrStubNotBase, "file %q is flagged is_stub_container but is not the base", f.Path()).WithPath(f.Path())
		}
	}

	tail := c.Tail()
	if tail == nil {
		return nil
	}
	ext, ok, err := DecodeExt(tail.UserBlock())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	sidecarPath := naming.ManifestPath(tail.Path())
	mf, raw, err := Load(sidecarPath)
	if err != nil {
		return err
	}
	if mf.ManifestUUID != ext.ManifestUUID {
		return ih5err.Newf(ih5err.ErrManifestMismatch,
			"sidecar %q has manifest_uuid %q, tail user-block expects %q", sidecarPath, mf.ManifestUUID, ext.ManifestUUID).WithPath(tail.Path())
	}

	algorithm, _, err := integrity.Split(ext.ManifestHashsum)
	if err != nil {
		return err
	}
	sum, err := integrity.Hashsum(bytes.NewReader(raw), 0, algorithm)
	if err != nil {
		return err
	}
	if sum != ext.ManifestHashsum {
		return ih5err.Newf(ih5err.ErrManifestMismatch,
			"sidecar %q hashes to %q, tail user-block expects %q", sidecarPath, sum, ext.ManifestHashsum).WithPath(tail.Path())
	}
	return nil
}
