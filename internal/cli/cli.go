// Package cli implements the parttree command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/parttree/internal/scenario"
	"github.com/matzehuels/parttree/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "parttree"

	// builtinPrefix selects an embedded scenario instead of a file.
	builtinPrefix = "builtin:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	config  *viper.Viper
	cfg     Config
	cfgFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: newConfig(),
		cfg:    defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Verbose reports whether the loaded configuration asks for debug logging.
func (c *CLI) Verbose() bool { return c.cfg.Verbose }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "parttree runs reactive part trees from scenario files",
		Long: `parttree builds a tree of parts from a scenario file, wires the declared
property dependencies and applies mutation steps, logging every change
notification that reaches a watched property.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/parttree/config.toml)")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.stepCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.demoCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Scenario Helpers
// =============================================================================

// loadScenario reads a scenario file, or an embedded one when arg starts
// with "builtin:".
func loadScenario(arg string) (*scenario.Scenario, error) {
	if name, ok := strings.CutPrefix(arg, builtinPrefix); ok {
		return scenario.Builtin(name)
	}
	return scenario.Load(arg)
}

// buildRunner loads a scenario and builds its tree. With apply set, every
// step is applied; failed expectations are ignored, other step errors are
// returned.
func (c *CLI) buildRunner(ctx context.Context, arg string, apply bool) (*scenario.Runner, error) {
	sc, err := loadScenario(arg)
	if err != nil {
		return nil, err
	}
	r, err := scenario.NewRunner(sc, &scenario.Options{Logger: loggerFromContext(ctx)})
	if err != nil {
		return nil, err
	}
	if apply {
		if _, err := r.Run(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/parttree/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
