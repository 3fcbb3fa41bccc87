// Package cli implements the featurestore command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/logging"
	"github.com/mesh-intelligence/featurestore/internal/paths"
	"github.com/mesh-intelligence/featurestore/pkg/featurestore"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by one command tree.
type app struct {
	flags  rootFlags
	config *viper.Viper
	logger *zap.Logger
}

// NewRootCmd creates the top-level "featurestore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "featurestore",
		Short: "Inspect and migrate persistent feature stores",
		Long: "featurestore creates, inspects and copies the on-disk backends\n" +
			"that persist object graphs as per-feature slots.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "store directory (env "+paths.EnvDataDir+", default "+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newInfoCmd(a))
	root.AddCommand(newCopyCmd(a))
	root.AddCommand(newSchemesCmd(a))

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

// exitCode maps substrate failures to exitSysError and everything else to
// exitUserError.
func exitCode(err error) int {
	var sys *sysError
	if errors.Is(err, types.ErrIO) || errors.As(err, &sys) {
		return exitSysError
	}
	return exitUserError
}

// sysError marks failures of the environment rather than of the request.
type sysError struct{ err error }

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

func systemError(format string, args ...any) error {
	return &sysError{err: fmt.Errorf(format, args...)}
}

// setup loads config.yaml, builds the logger and registers the backend
// families before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.config = v

	level := a.flags.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	logger, _, err := logging.New(logging.Options{
		Level:       level,
		Development: true,
		Output:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger

	featurestore.RegisterDefaults(logger)
	return nil
}

// storeConfig returns the store configuration from config.yaml with the
// data directory resolved through flag, config file and environment.
func (a *app) storeConfig() (types.Config, error) {
	var cfg types.Config
	if err := a.config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	dir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return cfg, systemError("resolve data dir: %w", err)
	}
	cfg.DataDir = dir
	return cfg, nil
}
