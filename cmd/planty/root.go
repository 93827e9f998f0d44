package planty

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/app"
	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/config"
	"github.com/fancyplanties/planty/internal/logging"
)

var (
	dbPath     string
	configPath string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "planty",
	Short: "planty keeps track of your houseplants and when they need feeding",
	Long: `planty is a local-first plant care CLI: a taxonomy catalog, care subjects with
fertilizer schedules, care logs, propagation tracking, and an urgency dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = app.DefaultConfigPath(); err != nil {
				return err
			}
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

// userMessage turns validation failures into guidance. Everything else is
// printed as is.
func userMessage(err error) string {
	if errors.Is(err, care.ErrUnparsableSchedule) {
		return fmt.Sprintf("%v\nfertilizer schedules look like \"2 weeks\", \"1 month\" or \"10 days\"", err)
	}
	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
}
