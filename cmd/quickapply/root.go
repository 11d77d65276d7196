package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/config"
	"github.com/entrhq/quickapply/pkg/evidence"
	"github.com/entrhq/quickapply/pkg/logging"
	"github.com/entrhq/quickapply/pkg/site"
)

// launcher is a browser.Launcher that owns a driver process.
type launcher interface {
	browser.Launcher
	Shutdown() error
}

// app holds what every command shares. Tests swap the filesystem, the
// environment and the launcher.
type app struct {
	fs  afero.Fs
	env config.LookupFunc

	startLauncher func(opts browser.Options) (launcher, error)

	configPath string
	verbose    bool
	headless   bool

	cfg    *config.Config
	logger *logging.Logger
}

func newApp() *app {
	return &app{
		fs:  afero.NewOsFs(),
		env: os.LookupEnv,
		startLauncher: func(opts browser.Options) (launcher, error) {
			l := browser.NewPlaywrightLauncher(opts)
			if err := l.Initialize(); err != nil {
				return nil, err
			}
			return l, nil
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quickapply",
		Short:         "Sign in to a job board and quick-apply to jobs",
		Long:          "quickapply signs in to a job board once, saves the browser session, and reuses it to quick-apply to job URLs.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipSetup"] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Also write log lines to stderr")
	rootCmd.PersistentFlags().BoolVar(&a.headless, "headless", false, "Run the browser without a window (overrides browser.headless)")

	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newApplyCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// setup loads the configuration and opens the log.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadWithEnv(a.fs, a.configPath, a.env)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = a.headless
	}
	a.cfg = cfg

	dir := cfg.LogDir
	if dir == "" {
		if dir, err = logging.DefaultDir(); err != nil {
			return fmt.Errorf("failed to resolve log directory: %w", err)
		}
	}
	var tee io.Writer
	if a.verbose {
		tee = cmd.ErrOrStderr()
	}
	logger, err := logging.NewLogger(dir, "cli", tee)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; logging to stderr\n", err)
	}
	a.logger = logger
	a.logger.Infof("quickapply %s starting %q with config %s", version, cmd.CommandPath(), a.configPath)
	return nil
}

// teardown closes the log. Safe to call when setup never ran.
func (a *app) teardown() error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

// profile returns the site profile selected by the configuration.
func (a *app) profile() (*site.Profile, error) {
	if a.cfg.SiteFile != "" {
		p, err := site.Load(a.fs, a.cfg.SiteFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		return p, nil
	}
	p, ok := site.Builtin(a.cfg.Site)
	if !ok {
		return nil, fmt.Errorf("%w: unknown site %q", errConfig, a.cfg.Site)
	}
	return p, nil
}

func (a *app) stateStore() *browser.StateStore {
	return browser.NewStateStore(a.fs, a.cfg.SessionStoragePath)
}

func (a *app) recorder() *evidence.Recorder {
	return evidence.NewRecorder(a.fs, a.cfg.EvidenceOutputDir, evidence.WithLogger(a.logger.With("evidence")))
}

func (a *app) launch() (launcher, error) {
	l, err := a.startLauncher(a.cfg.BrowserOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to start browser driver: %w", err)
	}
	return l, nil
}

// shutdown stops l, logging instead of failing the command.
func (a *app) shutdown(l launcher) {
	if err := l.Shutdown(); err != nil {
		a.logger.Warnf("Failed to stop browser driver: %v", err)
	}
}

// closeSession releases sess, logging instead of failing the command.
func (a *app) closeSession(sess *browser.Session) {
	if err := sess.Close(); err != nil {
		a.logger.Warnf("Failed to close browser session %s: %v", sess.Name, err)
	}
}
