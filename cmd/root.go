// Package cmd implements the rota command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rota/config"
	coremon "github.com/kilianp07/rota/core/monitoring"
	"github.com/kilianp07/rota/infra/logger"
	"github.com/kilianp07/rota/infra/monitoring"
	"github.com/kilianp07/rota/infra/store"
)

const (
	defaultConfig = "config.yaml"
	flushTimeout  = 2 * time.Second
)

type rootOptions struct {
	cfgPath  string
	cfg      *config.Config
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "rota",
		Short:         "On-call roster scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd.Flags().Changed("config"))
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			coremon.Flush(flushTimeout)
			if o.closeLog != nil {
				return o.closeLog()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&o.cfgPath, "config", "c", defaultConfig, "configuration file")
	root.AddCommand(
		newGenerateCmd(o),
		newExportCmd(o),
		newRunsCmd(o),
		newPinCmd(o),
		newServeCmd(o),
	)
	return root
}

// load reads the configuration and sets up logging. The default file is
// optional; an explicit one must exist.
func (o *rootOptions) load(explicit bool) error {
	path := o.cfgPath
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	closeLog, err := logger.Configure(cfg.Logging.Options())
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	o.cfg, o.closeLog = cfg, closeLog
	rep, err := monitoring.NewSentryReporter(cfg.Sentry)
	if err != nil {
		return err
	}
	coremon.SetReporter(rep)
	return nil
}

// openStore opens the run archive, which the archive commands require.
func (o *rootOptions) openStore() (*store.Store, error) {
	if !o.cfg.Store.Enabled() {
		return nil, errors.New("store.path is not configured")
	}
	return store.Open(o.cfg.Store.Path, logger.New("store"))
}

// Execute runs the CLI.
func Execute() error {
	defer coremon.Recover()
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		coremon.Flush(flushTimeout)
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// createOutput opens path for writing, or the command output when path is
// empty or "-".
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}
