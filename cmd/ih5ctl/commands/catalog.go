package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/internal/cli/output"
	"github.com/metador-go/ih5/pkg/catalog"
	"github.com/metador-go/ih5/pkg/config"
)

var (
	catalogOutput string
	catalogDir    string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and refresh the local chain catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every chain known to the catalog",
	RunE:  runCatalogList,
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rediscover chains under --dir and refresh the catalog",
	RunE:  runCatalogSync,
}

func init() {
	catalogCmd.PersistentFlags().StringVarP(&catalogOutput, "output", "o", "table", "output format (table|json|yaml)")
	catalogSyncCmd.Flags().StringVar(&catalogDir, "dir", ".", "directory to scan for chain files")
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
}

type catalogRows []catalog.Entry

func (catalogRows) Headers() []string {
	return []string{"NAME", "CHAIN_UUID", "HEAD_PATCH", "DIRECTORY", "LAST_SEEN"}
}

func (rows catalogRows) Rows() [][]string {
	out := make([][]string, len(rows))
	for i, e := range rows {
		out[i] = []string{
			e.Name,
			e.ChainUUID,
			e.HeadPatchUUID,
			e.Directory,
			e.LastSeenAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out
}

func openCatalog(cfg *config.Config) (*catalog.Store, error) {
	if !cfg.Catalog.Enabled {
		return nil, fmt.Errorf("catalog is disabled (catalog.enabled = false)")
	}
	return catalog.Open(cfg.Catalog)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(catalogOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), entries)
	case output.FormatYAML:
		return output.PrintYAML(cmd.OutOrStdout(), entries)
	default:
		return output.PrintTable(cmd.OutOrStdout(), catalogRows(entries))
	}
}

func runCatalogSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.Sync(cmd.Context(), catalogDir)
	if err != nil {
		return err
	}

	ok := 0
	for _, r := range results {
		if r.Err != nil {
			cmd.PrintErrf("skipped %q: %v\n", r.Name, r.Err)
			continue
		}
		ok++
		cmd.Printf("synced %q (uuid %s, head patch %s)\n", r.Name, r.Entry.ChainUUID, r.Entry.HeadPatchUUID)
	}
	cmd.Printf("synced %d of %d chain(s) found in %s\n", ok, len(results), catalogDir)
	return nil
}
