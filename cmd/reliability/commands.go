package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/cache"
	"reliability-insights/internal/config"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/models"
	"reliability-insights/internal/pipeline"
	"reliability-insights/internal/source"
)

// Command flags
var (
	// Extract flags
	inputFile string

	// Run flags
	publish bool

	// KPI flags
	fromDate  string
	toDate    string
	lineGroup string
	line      string
	shift     int
	dayType   string
	stopType  string

	// Risk dataset flags
	dropFirst bool

	// Forecast flags
	modelPath string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the failure log into the raw events CSV",
	Long: `Load failure-status rows of the configured line groups from the operational
database (source.kind: postgres) and cache them as the raw events CSV.

Examples:
  reliability extract
  reliability extract --input export.csv`,
	RunE: runExtract,
}

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Reconstruct failure episodes from the raw events CSV",
	RunE:  runEpisodes,
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build the daily RUL feature table from the tagged events",
	RunE:  runFeatures,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, episodes and features in one pass",
	Long: `Run the whole pipeline. Artifacts are replaced only when every step succeeds.

Examples:
  reliability run
  reliability run --publish`,
	RunE: runPipeline,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent feature row of every element",
	RunE:  runLatest,
}

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Compute MTTR, MTBF and OPE over the tagged events",
	Long: `Compute reliability indicators over the tagged events, optionally filtered.
OPE is reported when the production records file is present.

Examples:
  reliability kpi
  reliability kpi --from 2025-01-01 --to 2025-01-31 --line-group "MAIN LINE"
  reliability kpi --day-type Produtivo --stop breakdown`,
	RunE: runKPI,
}

var riskCmd = &cobra.Command{
	Use:   "risk-dataset",
	Short: "Write the one-hot breakdown-risk training dataset",
	RunE:  runRiskDataset,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the failure day of every element with a linear RUL model",
	Long: `Apply a linear RUL model to the latest feature row of every element and list
the elements by predicted failure day. Forecasts already in the past are dropped.

The model file holds an intercept and one coefficient per feature column:
  intercept: 20
  coefficients:
    paradas_ultimos_7d: -1.5
    tempo_desde_ultima_parada: 0.2

Examples:
  reliability forecast --model model.yaml`,
	RunE: runForecast,
}

func init() {
	extractCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Import a failure log CSV export instead of the configured source")

	runCmd.Flags().BoolVar(&publish, "publish", false, "Publish latest rows and the run summary to Redis")

	kpiCmd.Flags().StringVar(&fromDate, "from", "", "First effective day (YYYY-MM-DD)")
	kpiCmd.Flags().StringVar(&toDate, "to", "", "Last effective day (YYYY-MM-DD)")
	kpiCmd.Flags().StringVar(&lineGroup, "line-group", "", "Line group")
	kpiCmd.Flags().StringVar(&line, "line", "", "Line")
	kpiCmd.Flags().IntVar(&shift, "shift", 0, "Shift number")
	kpiCmd.Flags().StringVar(&dayType, "day-type", "", "Day type from the productive calendar (Produtivo, Improdutivo)")
	kpiCmd.Flags().StringVar(&stopType, "stop", "", "Stop type (breakdown, micro)")

	riskCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop the first category of every one-hot field")

	forecastCmd.Flags().StringVarP(&modelPath, "model", "m", "", "Path to the YAML linear RUL model")
	forecastCmd.MarkFlagRequired("model")
}

func runExtract(cmd *cobra.Command, args []string) error {
	src, closeSource, err := openSource(cmd, inputFile)
	if err != nil {
		return err
	}
	defer closeSource()

	load, err := current.pipeline.Extract(cmd.Context(), src)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), load, func(w io.Writer) {
		fmt.Fprintf(w, "Extracted %d events (%d skipped without equipment key)\n", len(load.Events), load.Skipped)
	})
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	res, err := current.pipeline.Episodes(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), map[string]int{
		"events":          len(res.Events),
		"episodes":        res.Episodes,
		"nuisance_merges": res.NuisanceMerges,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Reconstructed %d episodes from %d events (%d nuisance alarms merged)\n",
			res.Episodes, len(res.Events), res.NuisanceMerges)
	})
}

func runFeatures(cmd *cobra.Command, args []string) error {
	res, err := current.pipeline.Features(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), map[string]int{
		"rows":         len(res.Rows),
		"elements":     res.Elements,
		"unlabelled":   res.Unlabelled,
		"non_positive": res.NonPositive,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Built %d feature rows for %d elements\n", len(res.Rows), res.Elements)
	})
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, closeSource, err := openSource(cmd, "")
	if err != nil {
		return err
	}
	defer closeSource()

	p := current.pipeline
	if publish {
		redis := current.cfg.Redis
		store, err := cache.NewRedisCache(ctx, redis.Addr, redis.Password, redis.DB, redis.TTL)
		if err != nil {
			return err
		}
		defer store.Close()
		p = pipeline.New(current.cfg, current.log, pipeline.WithPublisher(store))
	}

	summary, err := p.Run(ctx, src)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), summary, func(w io.Writer) {
		fmt.Fprintf(w, "Run %s: %d events, %d episodes, %d feature rows for %d elements\n",
			summary.RunID, summary.EventsLoaded, summary.Episodes, summary.FeatureRows, summary.Elements)
		for _, path := range summary.Artifacts {
			fmt.Fprintf(w, "  %s\n", path)
		}
	})
}

func runLatest(cmd *cobra.Command, args []string) error {
	rows, err := current.pipeline.Latest(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), rows, func(w io.Writer) {
		writeLatest(w, rows)
	})
}

func writeLatest(w io.Writer, rows []models.FeatureRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ELEMENT\tDAY\tDAYS SINCE LAST STOP\tRUL (days)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.4f\n", r.ElementDesc, r.Day.Format(time.DateOnly), r.DaysSinceLastStop, r.RUL)
	}
	tw.Flush()
}

func runKPI(cmd *cobra.Command, args []string) error {
	filter, err := parseFilter(fromDate, toDate, lineGroup, line, shift, dayType, stopType)
	if err != nil {
		return err
	}

	report, err := current.pipeline.Report(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), report, func(w io.Writer) {
		writeReport(w, report)
	})
}

func writeReport(w io.Writer, report pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Events\t%d\n", report.Events)
	fmt.Fprintf(tw, "Failures\t%d\n", report.KPI.Failures)
	fmt.Fprintf(tw, "Downtime (min)\t%.2f\n", report.KPI.DowntimeMinutes)
	fmt.Fprintf(tw, "Uptime (min)\t%.2f\n", report.KPI.UptimeMinutes)
	fmt.Fprintf(tw, "MTTR (min)\t%.2f\n", report.KPI.MTTRMinutes)
	fmt.Fprintf(tw, "MTBF (min)\t%.2f\n", report.KPI.MTBFMinutes)
	if report.OPE != nil {
		fmt.Fprintf(tw, "OPE (%%)\t%.2f\n", report.OPE.Percent)
	}
	tw.Flush()
}

func runRiskDataset(cmd *cobra.Command, args []string) error {
	ds, err := current.pipeline.RiskDataset(cmd.Context(), dropFirst)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), map[string]int{
		"rows":    len(ds.Rows),
		"columns": len(ds.Columns),
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Wrote %d rows with %d feature columns to %s\n",
			len(ds.Rows), len(ds.Columns), current.cfg.Data.Path(current.cfg.Data.RiskDataset))
	})
}

func runForecast(cmd *cobra.Command, args []string) error {
	model, err := dataset.ReadLinearModel(modelPath, current.cfg.Pipeline.RollingWindows)
	if err != nil {
		return err
	}

	forecasts, err := current.pipeline.Forecast(cmd.Context(), model)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), forecasts, func(w io.Writer) {
		writeForecasts(w, forecasts)
	})
}

func writeForecasts(w io.Writer, forecasts []analytics.FailureForecast) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ELEMENT\tLAST DATA DAY\tRUL (days)\tFAILURE DAY\tDAYS FROM TODAY")
	for _, f := range forecasts {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%d\n", f.ElementDesc, f.LastDataDay.Format(time.DateOnly),
			f.PredictedRUL, f.PredictedFailureDay.Format(time.DateOnly), f.DaysFromToday)
	}
	tw.Flush()
}

func openSource(cmd *cobra.Command, input string) (pipeline.EventSource, func() error, error) {
	if input != "" {
		return source.CSV{Path: input}, func() error { return nil }, nil
	}
	return source.Open(cmd.Context(), current.cfg)
}

// parseFilter собирает фильтр из флагов команды kpi
func parseFilter(from, to, lineGroup, line string, shift int, dayType, stop string) (analytics.Filter, error) {
	filter := analytics.Filter{
		LineGroup:          lineGroup,
		Line:               line,
		Shift:              shift,
		BreakdownThreshold: current.breakdownThreshold(),
	}

	var err error
	if from != "" {
		if filter.From, err = time.Parse(time.DateOnly, from); err != nil {
			return filter, fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if filter.To, err = time.Parse(time.DateOnly, to); err != nil {
			return filter, fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", to)
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, fmt.Errorf("--to %s is before --from %s", to, from)
	}

	switch t := models.DayType(dayType); t {
	case "", models.DayProductive, models.DayUnproductive:
		filter.DayType = t
	default:
		return filter, fmt.Errorf("invalid --day-type %q: expected %s or %s", dayType, models.DayProductive, models.DayUnproductive)
	}

	switch s := analytics.StopType(stop); s {
	case analytics.StopAll, analytics.StopBreakdown, analytics.StopMicro:
		filter.Stop = s
	default:
		return filter, fmt.Errorf("invalid --stop %q: expected breakdown or micro", stop)
	}

	return filter, nil
}

func (a app) breakdownThreshold() time.Duration {
	if a.cfg == nil {
		return config.Default().Pipeline.BreakdownThreshold
	}
	return a.cfg.Pipeline.BreakdownThreshold
}

func printResult(w io.Writer, v interface{}, text func(io.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
