package catalog

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/manifest"
)

// chainFilePattern extracts the chain name from either a base filename
// ("<name>.ih5") or a patch filename ("<name>.p<N>.ih5"), mirroring
// pkg/naming's own filename convention.
var chainFilePattern = regexp.MustCompile(`^([A-Za-z0-9-]+)(?:\.p\d+)?\.ih5$`)

// discoverChainNames lists the distinct chain names with at least one file
// in dir.
func discoverChainNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := chainFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// SyncResult reports the outcome of Sync for a single chain name.
type SyncResult struct {
	Name  string
	Err   error
	Entry Entry
}

// Sync walks dir, opens every chain it finds read-only, and upserts a row
// for each into s. A chain that fails to open (a broken chain, an
// in-progress write) is reported in its SyncResult's Err rather than
// aborting the whole sync — one bad chain should not hide every other
// chain's catalog entry.
func (s *Store) Sync(ctx context.Context, dir string) ([]SyncResult, error) {
	ctx, span := telemetry.StartCatalogSpan(ctx, "sync", telemetry.FilePath(dir), telemetry.DBType(s.kind))
	defer span.End()

	names, err := discoverChainNames(dir)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	results := make([]SyncResult, 0, len(names))
	for _, name := range names {
		entry, err := s.syncOne(ctx, dir, name)
		results = append(results, SyncResult{Name: name, Entry: entry, Err: err})
	}
	return results, nil
}

func (s *Store) syncOne(ctx context.Context, dir, name string) (Entry, error) {
	c, err := chain.Open(dir, name, chain.ModeRead, chain.DefaultConfig())
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = c.Close(false) }()

	tail := c.Tail()
	entry := Entry{
		Name:           name,
		Directory:      dir,
		ChainUUID:      c.UUID(),
		HeadPatchIndex: tail.PatchIndex(),
		HeadPatchUUID:  tail.PatchUUID(),
		LastSeenAt:     time.Now(),
	}
	if ext, ok, err := manifest.DecodeExt(tail.UserBlock()); err == nil && ok {
		entry.ManifestUUID = ext.ManifestUUID
	}

	if err := s.Upsert(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
