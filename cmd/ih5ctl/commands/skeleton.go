package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/internal/cli/output"
	"github.com/metador-go/ih5/pkg/chain"
	"github.com/metador-go/ih5/pkg/skeleton"
)

var (
	skeletonDir    string
	skeletonOutput string
)

var skeletonCmd = &cobra.Command{
	Use:   "skeleton <name>",
	Short: "Extract a chain's structural map (paths and attributes, no data)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSkeleton,
}

func init() {
	skeletonCmd.Flags().StringVar(&skeletonDir, "dir", ".", "directory holding the chain's files")
	skeletonCmd.Flags().StringVarP(&skeletonOutput, "output", "o", "table", "output format (table|json|yaml)")
}

type skeletonRows []skeleton.Entry

func (skeletonRows) Headers() []string {
	return []string{"KEY", "KIND", "PATCH_INDEX", "VALUE_KIND"}
}

func (rows skeletonRows) Rows() [][]string {
	out := make([][]string, len(rows))
	for i, e := range rows {
		out[i] = []string{e.Key, e.Kind.String(), strconv.Itoa(e.PatchIndex), valueKindString(e.ValueKind)}
	}
	return out
}

func valueKindString(k skeleton.ValueKind) string {
	switch k {
	case skeleton.ValueEmpty:
		return "empty"
	case skeleton.ValueScalar:
		return "scalar"
	default:
		return "bytes"
	}
}

func runSkeleton(cmd *cobra.Command, args []string) error {
	name := args[0]
	format, err := output.ParseFormat(skeletonOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := chain.Open(skeletonDir, name, chain.ModeRead, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	views := make([]skeleton.FileView, len(c.Files()))
	for i, f := range c.Files() {
		views[i] = f
	}
	sk := skeleton.Extract(views)

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), sk)
	case output.FormatYAML:
		return output.PrintYAML(cmd.OutOrStdout(), sk)
	default:
		return output.PrintTable(cmd.OutOrStdout(), skeletonRows(sk.Entries))
	}
}
