package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/config"
	logpkg "github.com/kailas-cloud/vexplain/internal/logger"
	"github.com/kailas-cloud/vexplain/internal/metrics"
)

// usageError marks bad flags or arguments; the CLI exits with code 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// NewRootCmd creates the root vexplain command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vexplain",
		Short:         "Retrieval-augmented explanations for annotated genetic variants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default: config/<env>.yaml)")
	root.PersistentFlags().String("env", "", "environment name: local, dev, docker, prod (default: $ENV or local)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		newBuildIndexCmd(),
		newExplainCmd(),
		newServeCmd(),
		newValidateIndexCmd(),
		newVersionCmd(),
	)

	return root
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err: err}
	}
	return nil
}

// app is the per-invocation runtime: resolved config, logger and the
// resources opened while wiring.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	closers []func()
}

// newApp resolves the environment and config, builds the logger and
// registers metrics. Callers must Close the returned app.
func newApp(cmd *cobra.Command) (*app, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, usagef("%v", err)
	}

	metrics.Register()

	return &app{env: env, cfg: cfg, logger: logger}, nil
}

// loadConfig reads --config when given, else config/<env>.yaml. A missing
// environment file falls back to defaults; an explicit --config must exist.
func loadConfig(cmd *cobra.Command, env string) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load(env)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close releases resources in reverse order and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
