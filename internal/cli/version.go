package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/featurestore/pkg/featurestore"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the featurestore version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "featurestore v%s\nmodule: %s\n", featurestore.Version, featurestore.ModulePath)
			return nil
		},
	}
}
