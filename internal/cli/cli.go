// Package cli implements the gplugins command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/buildinfo"
	"github.com/gdsfactory/gplugins-go/pkg/pipeline"
	"github.com/gdsfactory/gplugins-go/pkg/simdb"
	"github.com/gdsfactory/gplugins-go/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "gplugins"

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

	cacheOverride string // --cache-dir
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose bool
		noColor bool
	)

	root := &cobra.Command{
		Use:   appName,
		Short: "gplugins drives photonic simulations from layout files",
		Long: `gplugins resolves 2D layouts against a layer stack into 3D geometry and
feeds the result to simulation tools: gmsh meshes, FDTD mode solvers and
Palace electrostatics. Runs are cached by content and can be recorded in a
local results database.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			if noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
				c.Logger.SetColorProfile(termenv.Ascii)
			}
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&c.cacheOverride, "cache-dir", "", "override the cache directory")

	// Register all subcommands
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.stackCommand())
	root.AddCommand(c.meshCommand())
	root.AddCommand(c.fdtdCommand())
	root.AddCommand(c.palaceCommand())
	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.dbCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.farmCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand creates the version command.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(buildinfo.String())
		},
	}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. When dbPath is non-empty
// runs are recorded in that results database; the caller closes both the
// runner and the returned DB.
func (c *CLI) newRunner(noCache bool, dbPath string) (*pipeline.Runner, *simdb.DB, error) {
	backend := c.newBackend(noCache)
	var db *simdb.DB
	if dbPath != "" {
		var err error
		db, err = simdb.Open(dbPath)
		if err != nil {
			backend.Close()
			return nil, nil, err
		}
	}
	return pipeline.NewRunner(backend, store.Keyer{}, db, c.Logger), db, nil
}

// newBackend picks the result store: null when caching is off, the file
// cache otherwise, falling back to memory when no cache dir is usable.
func (c *CLI) newBackend(noCache bool) store.Backend {
	if noCache {
		return store.NewNull()
	}
	dir, err := c.cacheDir()
	if err != nil {
		return store.NewMemory()
	}
	f, err := store.NewFile(dir)
	if err != nil {
		return store.NewMemory()
	}
	return f
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory: the --cache-dir override when set,
// otherwise the XDG standard (~/.cache/gplugins/).
func (c *CLI) cacheDir() (string, error) {
	if c.cacheOverride != "" {
		return c.cacheOverride, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using the XDG standard
// (~/.local/share/gplugins/). It holds the default results database.
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// defaultDBPath returns the default results database location, creating its
// parent directory.
func defaultDBPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "simulations.db"), nil
}
