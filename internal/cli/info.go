package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/featurestore/internal/factory"
)

// storeInfo is the JSON form of the info command.
type storeInfo struct {
	Backend string `json:"backend"`
	Mapping string `json:"mapping"`
	Version int    `json:"version"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [dir]",
		Short: "Print the descriptor of a persistent store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := a.storeConfig()
				if err != nil {
					return err
				}
				dir = cfg.DataDir
			}

			meta, ok, err := factory.ReadMetadata(dir)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no feature store at %s", dir)
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(storeInfo{Backend: meta.Backend, Mapping: meta.Mapping, Version: meta.Version})
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "backend\t%s\n", meta.Backend)
			fmt.Fprintf(w, "mapping\t%s\n", meta.Mapping)
			fmt.Fprintf(w, "version\t%d\n", meta.Version)
			fmt.Fprintf(w, "descriptor\t%s\n", factory.MetadataFile)
			return w.Flush()
		},
	}
}
