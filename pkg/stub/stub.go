// Package stub implements the stub initializer (§4.8): given a skeleton
// extracted from a real chain and that chain's tail user-block, materialize
// a new standalone base file whose structure mirrors the skeleton exactly
// but whose groups, datasets, and attributes all hold HDF5 "empty" values.
// The result carries the source chain's identity (chain_uuid, patch_index,
// patch_uuid) with prev_patch cleared, so a patch authored against the stub
// can later be applied on top of the real base by a host that does hold it.
package stub

import (
	"context"
	"os"
	"strings"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/skeleton"
	"github.com/metador-go/ih5/pkg/userblock"
)

// Create materializes a fresh stub chain at dir/name: an empty-placeholder
// base file matching sk's structure, finalized through the normal commit
// path so the result is a complete, integrity-verifiable container. sourceUB
// is normally the source chain's tail user-block; prev_patch is always
// cleared regardless of what sourceUB carries, since a stub has no real
// predecessor on disk.
func Create(dir, name string, sourceUB userblock.UserBlock, sk *skeleton.Skeleton, cfg chain.Config) (c *chain.Chain, err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanStubCreate, name)
	defer func() {
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	if cfg.ReservedUserBlockSize == 0 {
		cfg.ReservedUserBlockSize = chain.DefaultReservedUserBlockSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "creating stub directory", err).WithPath(dir)
	}

	path := naming.BasePath(dir, name)
	h, err := h5file.Create(path, cfg.ReservedUserBlockSize, os.O_EXCL)
	if err != nil {
		return nil, err
	}

	ub, err := Initialize(h, sourceUB, sk)
	if err != nil {
		_ = h.Close()
		_ = os.Remove(path)
		return nil, err
	}

	f := chain.NewFile(h, ub, cfg)
	c = chain.WrapSingleFile(dir, name, f, chain.StateWritable, cfg)
	if err := c.CommitPatch(); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize writes sk's empty-placeholder structure into h's payload tree
// and overwrites h's user-block to carry sourceUB's chain identity with no
// predecessor. It does not flush, hash, or finalize h — callers that want a
// complete container should use Create, which wraps this in the normal
// commit sequence; Initialize is exposed separately for pkg/manifest's
// manifest-aware variant, which needs to interleave extension-section
// bookkeeping between this step and the commit.
func Initialize(h *h5file.File, sourceUB userblock.UserBlock, sk *skeleton.Skeleton) (userblock.UserBlock, error) {
	tree := h.Tree()

	for _, e := range sk.Entries {
		switch e.Kind {
		case skeleton.EntryGroup:
			if err := tree.CreateGroup("/" + e.Key); err != nil {
				return userblock.UserBlock{}, err
			}

		case skeleton.EntryDataset:
			if err := tree.CreateDataset("/"+e.Key, h5file.EmptyValue()); err != nil {
				return userblock.UserBlock{}, err
			}

		case skeleton.EntryAttribute:
			nodePath, attrName, err := splitAttrKey(e.Key)
			if err != nil {
				return userblock.UserBlock{}, err
			}
			if err := tree.SetAttribute(nodePath, attrName, h5file.EmptyValue()); err != nil {
				return userblock.UserBlock{}, err
			}
		}
	}

	ub := sourceUB.Clone()
	ub.PrevPatch = nil
	ub.HDF5Hashsum = nil
	if err := h.WriteUserBlock(ub); err != nil {
		return userblock.UserBlock{}, err
	}
	return ub, nil
}

// splitAttrKey reverses the "path@attrname" encoding pkg/skeleton produces.
// Node paths may not themselves contain '@' (the skeleton format's one
// reserved character); splitting on the first occurrence is therefore exact
// even when the attribute name itself contains '@'.
func splitAttrKey(key string) (nodePath, attrName string, err error) {
	idx := strings.IndexByte(key, '@')
	if idx < 0 {
		return "", "", ih5err.Newf(ih5err.ErrInvalidKey, "skeleton key %q is not an attribute entry", key)
	}
	node := key[:idx]
	attrName = key[idx+1:]
	if node == "" {
		return "/", attrName, nil
	}
	return "/" + node, attrName, nil
}
