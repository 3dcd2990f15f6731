package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"api_smoke_testing/internal/config"
	"api_smoke_testing/internal/reporter"
	"api_smoke_testing/internal/runner"
	"api_smoke_testing/internal/schema"
	"api_smoke_testing/internal/transport"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	casesPath   string
	reportPath  string
	metricsPath string
	table       bool
	debug       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "api-smoke",
		Short: "Run declarative HTTP smoke tests and write an xlsx report",
		Long: "api-smoke reads named HTTP test cases, runs them one by one against live endpoints, " +
			"checks status codes and optional JSON schemas, and writes a spreadsheet report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.StringVar(&opts.casesPath, "cases", "", "case file (.json, .yaml, .xlsx); defaults to config/endpoints.json next to the binary")
	flags.StringVar(&opts.reportPath, "report", "", "xlsx report path; defaults to reports/api_test_result.xlsx next to the binary")
	flags.StringVar(&opts.metricsPath, "metrics-file", "", "also write Prometheus textfile metrics to this path")
	flags.BoolVar(&opts.table, "table", false, "also print the report as a table")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api-smoke version %s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	})
	return root
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load settings")
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}

	level := glog.LevelInfo
	if cfg.Debug {
		level = glog.LevelDebug
	}
	logger, err := glog.NewConsoleWithName("api-smoke", level)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}

	cases, err := config.LoadCases(cfg.CasesPath, cfg.CasesSheet)
	if err != nil {
		return errors.Wrap(err, "load cases")
	}
	logger.Debug("cases loaded", zap.String("path", cfg.CasesPath), zap.Int("count", len(cases)))

	client := transport.New(transport.WithUserAgent("api-smoke/" + version))
	defer client.Close()

	evaluator := runner.NewEvaluator(client, schema.NewValidator(), logger)
	r := runner.New(evaluator, buildSinks(cfg, opts, stdout), stdout, logger)
	if _, err := r.Run(ctx, cases); err != nil {
		return err
	}

	logger.Info("report written", zap.String("path", cfg.ReportPath))
	if cfg.MetricsPath != "" {
		logger.Info("metrics written", zap.String("path", cfg.MetricsPath))
	}
	return nil
}

// applyOverrides lets flags win over env and defaults. Flag paths are relative to
// the working directory.
func applyOverrides(cfg *config.Config, opts options) error {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{opts.casesPath, &cfg.CasesPath},
		{opts.reportPath, &cfg.ReportPath},
		{opts.metricsPath, &cfg.MetricsPath},
	} {
		if o.flag == "" {
			continue
		}
		abs, err := filepath.Abs(o.flag)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", o.flag)
		}
		*o.dst = abs
	}
	if opts.debug {
		cfg.Debug = true
	}
	return nil
}

func buildSinks(cfg *config.Config, opts options, stdout io.Writer) reporter.Multi {
	sinks := reporter.Multi{reporter.NewXLSX(cfg.ReportPath)}
	if opts.table {
		sinks = append(sinks, reporter.NewTable(stdout))
	}
	if cfg.MetricsPath != "" {
		sinks = append(sinks, reporter.NewMetrics(cfg.MetricsPath))
	}
	return sinks
}

var _ runner.Sink = reporter.Multi(nil)
