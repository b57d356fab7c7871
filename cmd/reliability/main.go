// Команда reliability восстанавливает эпизоды отказов по журналу остановов
// и строит дневную таблицу признаков RUL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reliability-insights/internal/config"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/logger"
	"reliability-insights/internal/pipeline"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configPath string
	dataDir    string
	jsonOutput bool
)

// app общие зависимости команд, собираются в PersistentPreRunE
type app struct {
	cfg      *config.Config
	log      logger.Logger
	pipeline *pipeline.Pipeline
}

var current app

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if current.log != nil {
		current.log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, remediation(err))
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reliability",
	Short: "Reliability - failure episodes and RUL features",
	Long: `Reliability reconstructs failure episodes from the equipment failure log and
builds the daily Remaining-Useful-Life feature table.

Each step reads the artifact of the previous one:
  extract   failure log -> raw events CSV
  episodes  raw events -> episode-tagged events
  features  tagged events -> RUL feature table

Examples:
  reliability run
  reliability extract --config config.yaml
  reliability latest --json
  reliability kpi --from 2025-01-01 --to 2025-01-31 --day-type Produtivo
  reliability forecast --model model.yaml`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.Path("config.yaml"), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the artifact directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(episodesCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(kpiCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(forecastCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}

	current = app{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline.New(cfg, log),
	}
	return nil
}

// remediation дополняет ошибку подсказкой, как ее исправить
func remediation(err error) string {
	var missing *dataset.MissingArtifactError
	if errors.As(err, &missing) {
		if missing.Generator == "" {
			return fmt.Sprintf("Error: input file %s does not exist.\nProvide it or point data.dir at the directory that contains it.", missing.Path)
		}
		return fmt.Sprintf("Error: input file %s does not exist.\nRun `%s` first to generate it.", missing.Path, missing.Generator)
	}

	var schema *dataset.SchemaError
	if errors.As(err, &schema) {
		return fmt.Sprintf("Error: %s has no %q column.\nThe file was produced by a different version or edited by hand; regenerate it.", schema.Path, schema.Column)
	}

	var invalid *config.ValidationError
	if errors.As(err, &invalid) {
		return fmt.Sprintf("Error: invalid configuration: %v\nCheck %s and the environment overrides.", invalid, configPath)
	}

	return fmt.Sprintf("Error: %v", err)
}
