package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rachel/recon/internal/config"
	"github.com/rachel/recon/internal/logging"
	"github.com/rachel/recon/internal/reporting"
	"github.com/rachel/recon/internal/scanner"
	"github.com/rachel/recon/internal/ui"
)

const (
	exitInvalidExtension = 1
	exitTemplateWrite    = 2
	exitConfigParse      = 3
	exitClient           = 4
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

type parseOptions struct {
	verbose    bool
	noProgress bool
	logLevel   string
	logJSON    bool
	logFile    string
	jsonOut    string
	yamlOut    string
	htmlOut    string
	xlsxOut    string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		cancel()
		os.Exit(exitCode(err))
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "rachel",
		Short:         "Blue-team scanner & template tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newGenCommand(stdout))
	root.AddCommand(newParseCommand(stdout, stderr))
	return root
}

func newGenCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "gen <file.rchl>",
		Short: "Generate a blank config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := config.CheckExtension(path); err != nil {
				return &exitError{code: exitInvalidExtension, err: err}
			}
			if err := config.WriteTemplate(path); err != nil {
				return &exitError{code: exitTemplateWrite, err: fmt.Errorf("creating template: %w", err)}
			}
			fmt.Fprintf(stdout, "Template file generated: %s\n", path)
			return nil
		},
	}
}

func newParseCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <file.rchl>",
		Short: "Parse a config file and run the scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), args[0], opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print headers, snippets and heuristic notes")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress line")
	f.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel(), "Log level: debug|info|warn|error (env: RACHEL_LOG_LEVEL)")
	f.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")
	f.StringVar(&opts.logFile, "log-file", "", "Also write logs to a rotating file")
	f.StringVarP(&opts.jsonOut, "output", "o", "", "JSON report file")
	f.StringVar(&opts.yamlOut, "yaml", "", "YAML report file")
	f.StringVar(&opts.htmlOut, "html", "", "HTML report file")
	f.StringVar(&opts.xlsxOut, "xlsx", "", "XLSX report file")
	return cmd
}

func runParse(ctx context.Context, path string, opts *parseOptions, stdout, stderr io.Writer) error {
	if err := config.CheckExtension(path); err != nil {
		return &exitError{code: exitInvalidExtension, err: err}
	}

	logger, err := logging.Setup(logging.Options{
		Level:  opts.logLevel,
		JSON:   opts.logJSON,
		File:   opts.logFile,
		Writer: stderr,
	})
	if err != nil {
		return &exitError{code: exitConfigParse, err: err}
	}

	ui.PrintBanner(stdout)
	fmt.Fprintf(stdout, "Parsing file: %s\n", path)

	cfg, warnings, err := config.ParseFile(path)
	ui.PrintWarnings(stderr, warnings)
	if err != nil {
		return &exitError{code: exitConfigParse, err: err}
	}

	ui.PrintConfig(stdout, cfg)

	engine, err := scanner.NewEngine(cfg, logger)
	if err != nil {
		return &exitError{code: exitClient, err: err}
	}

	fmt.Fprintf(stdout, "Starting scan for target: %s\n", cfg.Target)
	start := time.Now()

	results, stats, err := runWithProgress(ctx, engine, opts, stderr)
	if err != nil {
		return &exitError{code: exitConfigParse, err: err}
	}
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "[!] Scan cancelled, results are partial")
	}

	reporting.SortResults(results)
	for _, result := range results {
		ui.PrintResult(stdout, result, opts.verbose)
	}
	ui.PrintSummary(stdout, stats)

	report := reporting.NewReport(results, cfg.Target, cfg.Crawl(), start)
	writeReport(stdout, stderr, "JSON", opts.jsonOut, func(p string) error { return reporting.SaveJSON(report, p) })
	writeReport(stdout, stderr, "YAML", opts.yamlOut, func(p string) error { return reporting.SaveYAML(report, p) })
	writeReport(stdout, stderr, "HTML", opts.htmlOut, func(p string) error { return reporting.GenerateHTML(report, p) })
	writeReport(stdout, stderr, "XLSX", opts.xlsxOut, func(p string) error { return reporting.SaveXLSX(report, p) })

	return nil
}

func runWithProgress(ctx context.Context, engine *scanner.Engine, opts *parseOptions, stderr io.Writer) ([]scanner.Result, *scanner.Stats, error) {
	if opts.noProgress {
		return engine.Run(ctx)
	}

	type scanResult struct {
		results []scanner.Result
		stats   *scanner.Stats
		err     error
	}
	resultCh := make(chan scanResult, 1)
	go func() {
		res, st, err := engine.Run(ctx)
		resultCh <- scanResult{results: res, stats: st, err: err}
	}()

	progressCtx, stopProgress := context.WithCancel(ctx)
	progressDone := make(chan struct{})
	stats := engine.Stats()
	go func() {
		defer close(progressDone)
		ui.StartProgressReporter(progressCtx, stderr, stats)
	}()

	sr := <-resultCh
	stopProgress()
	<-progressDone
	return sr.results, sr.stats, sr.err
}

func writeReport(stdout, stderr io.Writer, kind, path string, save func(string) error) {
	if path == "" {
		return
	}
	if err := save(path); err != nil {
		fmt.Fprintf(stderr, "Failed to save %s report: %s\n", kind, err)
		return
	}
	fmt.Fprintf(stdout, "%s report saved: %s\n", kind, path)
}
