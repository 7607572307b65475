package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/internal/cli/output"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/manifest"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/overlay"
	"github.com/metador-go/ih5/pkg/userblock"
)

var (
	showDir    string
	showOutput string
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Dump a chain's merged overlay tree, tail ih5_meta, and manifest sidecar",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showDir, "dir", ".", "directory holding the chain's files")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "output format (table|json|yaml)")
}

type treeEntry struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type treeEntries []treeEntry

func (treeEntries) Headers() []string { return []string{"PATH", "KIND"} }

func (e treeEntries) Rows() [][]string {
	rows := make([][]string, len(e))
	for i, entry := range e {
		rows[i] = []string{entry.Path, entry.Kind}
	}
	return rows
}

// showResult is the full payload `show` dumps per SPEC_FULL.md §B.4: the
// merged overlay tree, the tail's ih5_meta user-block, and the manifest
// sidecar contents when one sits next to the tail.
type showResult struct {
	Tree      treeEntries         `json:"tree"`
	UserBlock userblock.UserBlock `json:"ih5_meta"`
	Manifest  *manifest.Manifest  `json:"manifest,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(showDir, name, chain.ModeRead, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	root := overlay.Root(c.FileViews())

	entries := treeEntries{}
	if err := root.Visit(func(relPath string, kind h5file.Kind) error {
		entries = append(entries, treeEntry{Path: relPath, Kind: kind.String()})
		return nil
	}); err != nil {
		return err
	}

	tail := c.Tail()
	result := showResult{Tree: entries, UserBlock: tail.UserBlock()}

	mfPath := naming.ManifestPath(tail.Path())
	if _, err := os.Stat(mfPath); err == nil {
		mf, _, err := manifest.Load(mfPath)
		if err != nil {
			return err
		}
		result.Manifest = mf
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), result)
	case output.FormatYAML:
		return output.PrintYAML(cmd.OutOrStdout(), result)
	default:
		if err := output.PrintTable(cmd.OutOrStdout(), entries); err != nil {
			return err
		}
		cmd.Println()
		cmd.Printf("ih5_meta: patch %d (%s), chain %s\n", result.UserBlock.PatchIndex, result.UserBlock.PatchUUID, result.UserBlock.RecordUUID)
		if result.Manifest != nil {
			cmd.Printf("manifest: %s (%s)\n", mfPath, result.Manifest.ManifestUUID)
		}
		return nil
	}
}
