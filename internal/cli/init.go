package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/pkg/featurestore"
)

func newInitCmd(a *app) *cobra.Command {
	var backend, mapping string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a persistent store in the data directory",
		Long: "Create the data directory, write its descriptor and initialize the\n" +
			"backend. Running init on an existing store checks that it matches.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			if backend != "" {
				cfg.Backend = backend
			}
			if mapping != "" {
				cfg.Mapping = mapping
			}

			s, err := featurestore.Open(cfg, a.logger)
			if err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			variant := s.Backend().Variant()
			if err := s.Close(); err != nil {
				return fmt.Errorf("finalize store: %w", err)
			}

			a.logger.Info("store initialized", zap.String("dir", cfg.DataDir), zap.String("backend", cfg.Backend))
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s store (mapping %s) at %s\n", cfg.Backend, variant, cfg.DataDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "backend family (overrides config.yaml)")
	cmd.Flags().StringVar(&mapping, "mapping", "", "multi-valued encoding (overrides config.yaml)")
	return cmd
}
