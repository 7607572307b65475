package commands

import (
	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/naming"
)

var (
	mergeSrcDir string
	mergeDstDir string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <name> <merged-name>",
	Short: "Materialize a chain's merged view into a single new base file",
	Long: `Merge replays every file of a chain, oldest to newest, into one
fresh base file with no patch history, inheriting the chain's identity.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeSrcDir, "dir", ".", "directory holding the source chain's files")
	mergeCmd.Flags().StringVar(&mergeDstDir, "out-dir", ".", "directory to write the merged chain's base file into")
}

func runMerge(cmd *cobra.Command, args []string) error {
	name, mergedName := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(mergeSrcDir, name, chain.ModeRead, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	merged, err := c.MergeFiles(mergeDstDir, mergedName)
	if err != nil {
		return err
	}

	chainUUID, patchUUID := merged.UUID(), merged.Tail().PatchUUID()
	if err := merged.Close(false); err != nil {
		return err
	}

	basePath := naming.BasePath(mergeDstDir, mergedName)
	cmd.Printf("merged chain %q into %q (uuid %s) at %s\n", name, mergedName, chainUUID, basePath)

	if err := archiveIfEnabled(cmd.Context(), cfg, chainUUID, patchUUID,
		basePath, naming.ManifestPath(basePath)); err != nil {
		cmd.PrintErrf("archive upload failed: %v\n", err)
	}
	return nil
}
