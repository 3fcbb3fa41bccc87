package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/factory"
	"github.com/mesh-intelligence/featurestore/pkg/featurestore"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func newCopyCmd(a *app) *cobra.Command {
	var from, to, mapping string
	cmd := &cobra.Command{
		Use:   "copy --from LOCATOR --to LOCATOR",
		Short: "Copy a persistent store into a new one of the same family",
		Long: "Copy every object of the store at --from into a fresh store at --to.\n" +
			"Locators look like kv:///path/to/store. The target may use a\n" +
			"different mapping but must belong to the same family.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			src, err := featurestore.ConfigFor(from)
			if err != nil {
				return err
			}
			dst, err := featurestore.ConfigFor(to)
			if err != nil {
				return err
			}
			dst.Mapping = mapping
			if src.DataDir == "" || dst.DataDir == "" {
				return fmt.Errorf("copy needs persistent locators with a directory: %w", types.ErrUnsupported)
			}
			if _, ok, err := factory.ReadMetadata(src.DataDir); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("no feature store at %s", src.DataDir)
			}
			if _, ok, err := factory.ReadMetadata(dst.DataDir); err != nil {
				return err
			} else if ok {
				return fmt.Errorf("%s already holds a store: %w", dst.DataDir, types.ErrConfigMismatch)
			}

			source, err := featurestore.Open(src, a.logger)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, source.Close()) }()

			target, err := featurestore.Open(dst, a.logger)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, target.Close()) }()

			if err := featurestore.Copy(source.Backend(), target.Backend()); err != nil {
				return fmt.Errorf("copy %s to %s: %w", src.DataDir, dst.DataDir, err)
			}
			a.logger.Info("store copied",
				zap.String("from", src.DataDir),
				zap.String("to", dst.DataDir),
				zap.String("mapping", target.Backend().Variant()))
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s store from %s to %s\n", src.Backend, src.DataDir, dst.DataDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source store locator")
	cmd.Flags().StringVar(&to, "to", "", "target store locator")
	cmd.Flags().StringVar(&mapping, "mapping", "", "multi-valued encoding of the target")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
