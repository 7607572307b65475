package manifest

import (
	"bytes"
	"context"
	"os"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/stub"
	"github.com/metador-go/ih5/pkg/userblock"
)

// CreateStub implements §4.10's create_stub(target, manifest_path): read the
// manifest at manifestPath, materialize a fresh base at dir/name from its
// embedded skeleton and user-block per §4.8, set the stub flag and the
// manifest's hash in the user-block extension, commit, and copy the
// manifest file to the new base's canonical sidecar location so a later
// manifest-aware open finds it colocated.
func CreateStub(dir, name, manifestPath string, cfg chain.Config) (c *chain.Chain, err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanStubCreate, name)
	defer func() {
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	mf, raw, err := Load(manifestPath)
	if err != nil {
		return nil, err
	}
	if mf.Skeleton == nil {
		return nil, ih5err.New(ih5err.ErrCorruptUserBlock, "manifest has no embedded skeleton")
	}

	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	if cfg.ReservedUserBlockSize == 0 {
		cfg.ReservedUserBlockSize = chain.DefaultReservedUserBlockSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "creating stub directory", err).WithPath(dir)
	}

	basePath := naming.BasePath(dir, name)
	h, err := h5file.Create(basePath, cfg.ReservedUserBlockSize, os.O_EXCL)
	if err != nil {
		return nil, err
	}

	ub, err := stub.Initialize(h, mf.UserBlock, mf.Skeleton)
	if err != nil {
		_ = h.Close()
		_ = os.Remove(basePath)
		return nil, err
	}

	sum, err := integrity.Hashsum(bytes.NewReader(raw), 0, cfg.HashAlgorithm)
	if err != nil {
		_ = h.Close()
		_ = os.Remove(basePath)
		return nil, err
	}

	if ub.Exts == nil {
		ub.Exts = map[string]any{}
	}
	ub.Exts[userblock.ManifestExtKey] = userblock.ManifestExt{
		IsStubContainer: true,
		ManifestUUID:    mf.ManifestUUID,
		ManifestHashsum: sum,
	}
	if err := h.WriteUserBlock(ub); err != nil {
		_ = h.Close()
		_ = os.Remove(basePath)
		return nil, err
	}

	f := chain.NewFile(h, ub, cfg)
	c = chain.WrapSingleFile(dir, name, f, chain.StateWritable, cfg)
	if err := c.CommitPatch(); err != nil {
		return nil, err
	}

	if err := os.WriteFile(naming.ManifestPath(basePath), raw, 0o644); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "writing stub manifest sidecar", err).WithPath(basePath)
	}
	return c, nil
}
