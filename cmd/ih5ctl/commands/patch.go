package commands

import (
	"context"

	"github.com/spf13/cobra"

	s3archive "github.com/metador-go/ih5/pkg/archive/s3"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/config"
	"github.com/metador-go/ih5/pkg/naming"
)

var patchDir string

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Manage a chain's writable patch",
}

var patchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Reopen a chain, starting or resuming its writable patch",
	Long: `Create reopens a chain's tail writable: it resumes an incomplete
tail left writable by a prior run, or starts a fresh patch on top of an
already-committed tail (§4.6's ModeReadWrite semantics).`,
	Args: cobra.ExactArgs(1),
	RunE: runPatchCreate,
}

var patchCommitCmd = &cobra.Command{
	Use:   "commit <name>",
	Short: "Commit the chain's writable tail, sealing it with an integrity hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatchCommit,
}

var patchDiscardCmd = &cobra.Command{
	Use:   "discard <name>",
	Short: "Discard the chain's writable tail, restoring the pre-patch state",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatchDiscard,
}

func init() {
	patchCmd.PersistentFlags().StringVar(&patchDir, "dir", ".", "directory holding the chain's files")
	patchCmd.AddCommand(patchCreateCmd)
	patchCmd.AddCommand(patchCommitCmd)
	patchCmd.AddCommand(patchDiscardCmd)
}

func runPatchCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(patchDir, name, chain.ModeReadWrite, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	tail := c.Tail()
	cmd.Printf("writable patch %d (%s) ready on chain %q\n", tail.PatchIndex(), tail.PatchUUID(), name)
	return nil
}

func runPatchCommit(cmd *cobra.Command, args []string) error {
	name := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(patchDir, name, chain.ModeReadWrite, chainConfig(cfg))
	if err != nil {
		return err
	}

	if err := c.CommitPatch(); err != nil {
		_ = c.Close(false)
		return err
	}

	tail := c.Tail()
	patchIndex, patchUUID, chainUUID := tail.PatchIndex(), tail.PatchUUID(), c.UUID()
	tailPath := naming.PatchPath(patchDir, name, patchIndex)
	if patchIndex == 0 {
		tailPath = naming.BasePath(patchDir, name)
	}
	manifestPath := naming.ManifestPath(tailPath)

	if err := c.Close(false); err != nil {
		return err
	}

	cmd.Printf("committed patch %d (%s) on chain %q\n", patchIndex, patchUUID, name)

	if err := archiveIfEnabled(cmd.Context(), cfg, chainUUID, patchUUID, tailPath, manifestPath); err != nil {
		cmd.PrintErrf("archive upload failed: %v\n", err)
	}
	return nil
}

func runPatchDiscard(cmd *cobra.Command, args []string) error {
	name := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(patchDir, name, chain.ModeReadWrite, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	if err := c.DiscardPatch(); err != nil {
		return err
	}

	cmd.Printf("discarded writable tail of chain %q\n", name)
	return nil
}

// archiveIfEnabled uploads a just-committed patch's container file and
// manifest sidecar to the configured archive bucket. It is a best-effort
// post-commit hook: failures are reported to the caller but never undo the
// commit, and it runs after the chain handle is closed so the archive
// upload is never on the write hot path.
func archiveIfEnabled(ctx context.Context, cfg *config.Config, chainUUID, patchUUID, containerPath, manifestPath string) error {
	if !cfg.Archive.Enabled {
		return nil
	}
	mirror, err := s3archive.New(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if mirror == nil {
		return nil
	}
	return mirror.ArchivePatch(ctx, chainUUID, patchUUID, containerPath, manifestPath)
}
