package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/featurestore/pkg/registry"
)

func newSchemesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the registered backend schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes := registry.Schemes()
			if a.flags.jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(schemes)
			}
			for _, s := range schemes {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
