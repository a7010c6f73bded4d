package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/watcherai/glassbox-gateway/internal/config"
	"github.com/watcherai/glassbox-gateway/internal/engine"
	"github.com/watcherai/glassbox-gateway/internal/repo"
	"github.com/watcherai/glassbox-gateway/internal/services"
	"github.com/watcherai/glassbox-gateway/internal/utils"
)

var (
	configPath string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:   "glassbox-gateway",
	Short: "Normalize glassbox analysis results and serve them over gRPC",
	Long: `glassbox-gateway submits prompt/output pairs to a glassbox analysis backend,
normalizes whichever response schema the backend speaks into one canonical
result, and keeps results in a per-session cache.

Examples:
  glassbox-gateway serve --config configs/gateway.yaml
  glassbox-gateway analyze --prompt "Where is the Eiffel Tower?" --output "Paris"
  glassbox-gateway history --limit 10
  glassbox-gateway health`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger, closeLog = utils.NewLoggerWithFile(cfg.Logging.Level, cfg.Logging.JSON, cfg.Logging.File)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.AddCommand(serveCmd, analyzeCmd, historyCmd, healthCmd)
}

func newAnalysisService() (*services.AnalysisService, error) {
	rules, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load rule pack: %w", err)
	}
	client := repo.NewGlassboxClient(
		cfg.Backend.BaseURL,
		repo.Endpoints{
			Analyze:  cfg.Backend.AnalyzePath,
			Analysis: cfg.Backend.AnalysisPath,
			History:  cfg.Backend.HistoryPath,
			Health:   cfg.Backend.HealthPath,
		},
		cfg.Backend.RequestField,
		cfg.Backend.Timeout,
	)
	adapter := engine.NewAdapter(engine.WithLogger(logger), engine.WithRules(rules))
	return services.NewAnalysisService(logger, client, adapter, cfg.Backend.PersistsResults), nil
}
