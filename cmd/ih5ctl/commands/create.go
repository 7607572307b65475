package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/internal/cli/prompt"
	"github.com/metador-go/ih5/pkg/chain"
)

var (
	createDir   string
	createForce bool
	createExcl  bool
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new chain base file",
	Long: `Create the base file of a new chain, rooted at --dir/<name>.ih5.

By default any existing chain of the same name is truncated and replaced;
pass --no-clobber to fail instead if one already exists.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createDir, "dir", ".", "directory holding the chain's files")
	createCmd.Flags().BoolVarP(&createForce, "force", "f", false, "skip the confirmation prompt when replacing an existing chain")
	createCmd.Flags().BoolVar(&createExcl, "no-clobber", false, "fail instead of truncating if the chain already exists")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode := chain.ModeCreate
	if createExcl {
		mode = chain.ModeCreateNoTrunc
	} else {
		ok, err := prompt.ConfirmWithForce(
			"This replaces any existing chain '"+name+"' in "+createDir, createForce)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("aborted")
			return nil
		}
	}

	c, err := chain.Open(createDir, name, mode, chainConfig(cfg))
	if err != nil {
		return err
	}

	uuid := c.UUID()
	if err := c.Close(true); err != nil {
		return err
	}

	cmd.Printf("created chain %q (uuid %s) at %s\n", name, uuid, filepath.Join(createDir, name+".ih5"))
	return nil
}
