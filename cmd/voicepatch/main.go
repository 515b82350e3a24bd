package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voicepatch/internal/config"
	"voicepatch/internal/host"
	"voicepatch/internal/logging"
	"voicepatch/internal/refresh"
	"voicepatch/internal/state"
)

var (
	// Global flags
	rootDir string
	verbose bool

	// Logger, built in PersistentPreRunE
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voicepatch",
	Short: "voicepatch - personalize Talon voice commands without editing upstream files",
	Long: `voicepatch regenerates override artifacts for Talon lists and commands from
small CSV control files, so user customizations survive upstream updates.

Directives (ADD, DELETE, REPLACE, REPLACE_KEY) in control.csv describe edits
against named lists or command files; voicepatch reads the live sources,
applies the edits, and emits artifacts under _personalizations/ whose match
predicate is strictly narrower than the source's, so Talon's
most-specific-wins matching always prefers them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootDir == "" {
			rootDir = defaultRoot()
		}
		cfg, err := config.Load(rootDir)
		if err != nil {
			return err
		}
		logger, err = logging.New(verbose || cfg.VerbosePersonalization)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// defaultRoot resolves the Talon user directory when --root is not given.
func defaultRoot() string {
	if v := os.Getenv("VOICEPATCH_ROOT"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".talon", "user")
}

// engine bundles the collaborators every subcommand needs.
type engine struct {
	cfg   *config.Config
	store *state.Store
	ctl   *refresh.Controller
}

func (e *engine) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// newEngine loads settings and wires the controller against the real
// filesystem and artifact registry.
func newEngine() (*engine, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	store, err := state.Open(cfg.StatePath())
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	fs := host.OSFS{}
	reg := host.NewDirRegistry(fs, cfg.OutDir())
	ctl := refresh.NewController(cfg, fs, reg, store, logger)
	return &engine{cfg: cfg, store: store, ctl: ctl}, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Talon user directory (default: $VOICEPATCH_ROOT or ~/.talon/user)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable per-directive trace logging")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
