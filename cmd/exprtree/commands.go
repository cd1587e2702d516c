// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/config"
	"github.com/mdhender/exprtree/model"
	"github.com/mdhender/exprtree/pipelines/stages"
	"github.com/mdhender/exprtree/renderer"
	"github.com/mdhender/exprtree/rules"
	store "github.com/mdhender/exprtree/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRootCmd(a *app, stdout, stderr io.Writer) *cobra.Command {
	var cfg *config.Config
	fs := afero.NewOsFs()

	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().String("config-file", "", "load configuration from file")
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().String("log-file", "", "also write logs to this file")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", true, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:           "exprtree",
		Short:         "Parse precedence-free expressions into trees",
		Long:          `Tokenize and parse expressions, and compile rewrite rule catalogs.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags || logFlags == 0 {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				_, _ = fmt.Fprintf(stdout, "exprtree: version %q\n", exprtree.Version().Core())
			}

			var err error
			if configFile, _ := cmd.Flags().GetString("config-file"); configFile != "" {
				if cfg, err = config.Load(fs, configFile); err != nil {
					return err
				}
			} else {
				cfg = config.Default()
			}

			level, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")
			verbose, _ := cmd.Flags().GetBool("verbose")
			debug, _ := cmd.Flags().GetBool("debug")
			switch {
			case debug:
				level = slog.LevelDebug
			case quiet:
				level = slog.LevelError
			case verbose:
				level = slog.LevelInfo
			}
			logFile, _ := cmd.Flags().GetString("log-file")
			if logFile == "" {
				logFile = cfg.Log.File
			}
			a.logger, a.closeLog, err = newLogger(stderr, level, logFile)
			if err != nil {
				return fmt.Errorf("log file: %w", err)
			}
			slog.SetDefault(a.logger)
			return nil
		},
	}
	cmdRoot.SetOut(stdout)
	cmdRoot.SetErr(stderr)
	cmdRoot.AddCommand(cmdTokenize(stdout))
	cmdRoot.AddCommand(cmdParse(a, &cfg, stdout, stderr))
	cmdRoot.AddCommand(cmdRules(a, &cfg, fs, stdout))
	cmdRoot.AddCommand(cmdBatch(a, &cfg, fs, stdout))
	cmdRoot.AddCommand(cmdVersion(stdout))
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}
	return cmdRoot
}

func cmdTokenize(stdout io.Writer) *cobra.Command {
	showStrings := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showStrings, "strings", showStrings, "print only the token strings, space separated")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "tokenize <expression>...",
		Short: "print the tokens of an expression",
		Long:  `Print the tokens of an expression. Arguments are joined with spaces.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toks := exprtree.Tokenize(strings.Join(args, " "))
			if showStrings {
				_, _ = fmt.Fprintln(stdout, strings.Join(exprtree.Strings(toks), " "))
				return nil
			}
			for n, tok := range toks {
				where := fmt.Sprintf("%d:%d", tok.Line, tok.Column)
				if tok.Synthetic {
					where = "-"
				}
				_, _ = fmt.Fprintf(stdout, "%5d %-8s %-12s %q\n", n+1, where, tok.Kind, tok.Text)
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdParse(a *app, cfg **config.Config, stdout, stderr io.Writer) *cobra.Command {
	var operatorCheck string
	var outputFile string
	compact := false
	format := "json"
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&compact, "compact", compact, "write JSON on a single line")
		cmd.Flags().StringVar(&format, "format", format, "output format: json, infix, or outline")
		cmd.Flags().StringVar(&operatorCheck, "operator-check", operatorCheck, "mixed operators in a group: off, warn, or error")
		cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "save tree to file")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "parse <expression>...",
		Short: "parse an expression and print its tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := renderer.New()
			if err != nil {
				return err
			}
			switch format {
			case "json", "infix", "outline":
			default:
				return fmt.Errorf("format: want json, infix, or outline, got %q", format)
			}
			opts, err := (*cfg).ParserOptions()
			if err != nil {
				return err
			}
			if operatorCheck != "" {
				check, err := exprtree.ParseOperatorCheck(operatorCheck)
				if err != nil {
					return err
				}
				opts = append(opts, exprtree.WithOperatorCheck(check))
			}
			opts = append(opts,
				exprtree.WithContext(cmd.Context()),
				exprtree.WithLogger(a.logger),
				exprtree.WithName("<args>"),
			)

			src := strings.Join(args, " ")
			p, err := exprtree.NewParser(opts...)
			if err != nil {
				return err
			}
			started := time.Now()
			tree, err := p.Parse(src)
			for _, diag := range p.Diagnostics() {
				exprtree.PrintDiagnostic(stderr, diag, "<args>", []byte(src))
			}
			if err != nil {
				if diag, ok := exprtree.DiagnosticOf(err); ok {
					exprtree.PrintDiagnostic(stderr, diag, "<args>", []byte(src))
				}
				return err
			}
			a.logger.Debug("parse: completed", slog.Duration("elapsed", time.Since(started)))

			var data []byte
			switch format {
			case "infix":
				data = []byte(r.Infix(tree) + "\n")
			case "outline":
				var buf bytes.Buffer
				if err = r.Outline(&buf, tree); err != nil {
					return err
				}
				data = buf.Bytes()
			default:
				if compact {
					data, err = json.Marshal(tree)
				} else {
					data, err = json.MarshalIndent(tree, "", "  ")
				}
				if err != nil {
					return err
				}
				data = append(data, '\n')
			}
			if outputFile == "" {
				_, _ = stdout.Write(data)
			} else if err = os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			} else {
				a.logger.Info("parse: wrote tree", slog.String("file", outputFile), slog.Int("bytes", len(data)))
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdRules(a *app, cfg **config.Config, fs afero.Fs, stdout io.Writer) *cobra.Command {
	var catalogFile string
	loadCatalog := func() (*rules.Catalog, error) {
		path := catalogFile
		if path == "" {
			path = (*cfg).Rules.Catalog
		}
		if path == "" {
			return rules.Default()
		}
		return rules.Load(fs, path)
	}

	var cmd = &cobra.Command{
		Use:   "rules",
		Short: "work with the rewrite rule catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogFile, "catalog", catalogFile, "load rules from this TOML file instead of the built-in catalog")

	cmdList := &cobra.Command{
		Use:   "list",
		Short: "list the rules in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			for _, r := range catalog.Rules {
				if r.Require == "" {
					_, _ = fmt.Fprintf(stdout, "%-20s %s\n", r.Name, r.Text)
				} else {
					_, _ = fmt.Fprintf(stdout, "%-20s %s    when %s\n", r.Name, r.Text, r.Require)
				}
			}
			return nil
		},
	}

	var dbPath string
	jobs := 0
	showDBStats := false
	cmdCompile := &cobra.Command{
		Use:   "compile",
		Short: "parse every rule and optionally save the trees to a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			opts, err := (*cfg).ParserOptions()
			if err != nil {
				return err
			}
			opts = append(opts, exprtree.WithLogger(a.logger))

			started := time.Now()
			compiled, err := rules.Compile(ctx, catalog, jobs, opts...)
			if err != nil {
				return err
			}
			a.logger.Info("rules: compiled", slog.Int("rules", len(compiled)), slog.Duration("elapsed", time.Since(started)))
			for _, cr := range compiled {
				kind := "intro"
				if cr.IsRewrite() {
					kind = "rewrite"
				}
				_, _ = fmt.Fprintf(stdout, "%-20s %-8s %s\n", cr.Name, kind, cr.Text)
			}

			if dbPath == "" {
				dbPath = (*cfg).Rules.Database
			}
			if dbPath == "" {
				return nil
			}
			sqlStore, err := openStore(a, dbPath)
			if err != nil {
				return err
			}
			defer sqlStore.Close()
			if err := sqlStore.SaveCatalog(ctx, compiled); err != nil {
				return err
			}
			if showDBStats {
				stats, err := sqlStore.Stats(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "database: %d rules, %d rewrites\n", stats.Rules, stats.Rewrites)
			}
			return nil
		},
	}
	cmdCompile.Flags().StringVar(&dbPath, "db", dbPath, "save compiled rules to this SQLite database")
	cmdCompile.Flags().IntVar(&jobs, "jobs", jobs, "rules to parse at once (0 means one per CPU)")
	cmdCompile.Flags().BoolVar(&showDBStats, "show-db-stats", showDBStats, "show row counts after saving")

	cmd.AddCommand(cmdList, cmdCompile)
	return cmd
}

func cmdBatch(a *app, cfg **config.Config, fs afero.Fs, stdout io.Writer) *cobra.Command {
	var dbPath string
	dataDir := "data"
	workers := 1
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&dbPath, "db", dbPath, "SQLite database for files, jobs, and results")
		cmd.Flags().StringVar(&dataDir, "data-dir", dataDir, "directory that ingested files are copied to")
		cmd.Flags().IntVar(&workers, "workers", workers, "number of parse workers")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "batch <file>...",
		Short: "ingest files of expressions and parse every line",
		Long: `Ingest files of expressions (one per line, '#' starts a comment),
queue them, and run parse workers until the queue is empty. Trees and
error codes are saved to the database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if workers < 1 {
				return fmt.Errorf("workers: must be at least 1")
			}
			if dbPath == "" {
				dbPath = (*cfg).Rules.Database
			}
			if dbPath == "" {
				return fmt.Errorf("batch: --db is required")
			}
			opts, err := (*cfg).ParserOptions()
			if err != nil {
				return err
			}

			var files []stages.IngestRequest
			for _, path := range args {
				data, err := afero.ReadFile(fs, path)
				if err != nil {
					return err
				}
				files = append(files, stages.IngestRequest{Filename: path, Data: data})
			}

			sqlStore, err := openStore(a, dbPath)
			if err != nil {
				return err
			}
			defer sqlStore.Close()

			ingest := stages.NewIngestService(sqlStore, dataDir)
			ingest.SetFS(fs)
			results, err := ingest.IngestFiles(ctx, files)
			if err != nil {
				return err
			}
			for i, result := range results {
				if result.Duplicate {
					a.logger.Info("batch: already ingested", slog.String("file", args[i]), slog.Int64("id", result.FileID))
				}
			}

			started := time.Now()
			g, gctx := errgroup.WithContext(ctx)
			for n := 1; n <= workers; n++ {
				worker := stages.NewWorkerService(sqlStore, dataDir, fmt.Sprintf("worker-%d", n), opts...)
				worker.SetFS(fs)
				worker.SetLogger(a.logger)
				g.Go(func() error {
					_, err := worker.Drain(gctx, model.WorkStageParse)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			a.logger.Info("batch: queue drained", slog.Duration("elapsed", time.Since(started)))

			for i, result := range results {
				exprs, err := sqlStore.ListExpressions(ctx, result.FileID)
				if err != nil {
					return err
				}
				failed := 0
				for _, expr := range exprs {
					if expr.ErrorCode != "" {
						failed++
						_, _ = fmt.Fprintf(stdout, "%s:%d: %s: %s\n", args[i], expr.LineNo, expr.ErrorCode, expr.ErrorMessage)
					}
				}
				_, _ = fmt.Fprintf(stdout, "%s: %d expressions, %d failed\n", args[i], len(exprs), failed)
			}
			summary, err := sqlStore.GetWorkSummary(ctx)
			if err != nil {
				return err
			}
			counts := summary[model.WorkStageParse]
			_, _ = fmt.Fprintf(stdout, "jobs: %d ok, %d failed\n", counts[model.WorkStatusOk], counts[model.WorkStatusFailed])
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

// openStore opens the database at path, creating it first if needed.
func openStore(a *app, path string) (*store.SQLiteStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := store.InitDatabase(path); err != nil {
			return nil, err
		}
		a.logger.Info("store: created database", slog.String("path", path))
	}
	return store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path, InitSchema: true})
}

func cmdVersion(stdout io.Writer) *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				_, _ = fmt.Fprintln(stdout, exprtree.Version().String())
				return nil
			}
			_, _ = fmt.Fprintln(stdout, exprtree.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}
