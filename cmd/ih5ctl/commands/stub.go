package commands

import (
	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/pkg/manifest"
)

var stubDir string

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Manage manifest-derived stub chains",
}

var stubCreateCmd = &cobra.Command{
	Use:   "create <name> <manifest-path>",
	Short: "Materialize an empty base chain from a manifest sidecar",
	Long: `Create reads the structural skeleton embedded in a manifest sidecar
and materializes a fresh, dataless base file with the same shape, flagged as
a stub so a later patch subchain can be validated against it without the
original payload.`,
	Args: cobra.ExactArgs(2),
	RunE: runStubCreate,
}

func init() {
	stubCmd.PersistentFlags().StringVar(&stubDir, "dir", ".", "directory to create the stub chain's base file in")
	stubCmd.AddCommand(stubCreateCmd)
}

func runStubCreate(cmd *cobra.Command, args []string) error {
	name, manifestPath := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := manifest.CreateStub(stubDir, name, manifestPath, chainConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(false) }()

	cmd.Printf("created stub chain %q (uuid %s)\n", name, c.UUID())
	return nil
}
