// Package main provides the techsift binary entry point.
// Techsift parses network device diagnostic captures (show-tech
// bundles, CLI transcripts, XML config exports) into canonical
// entities.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/techsift/techsift/capture"
	"github.com/techsift/techsift/config"
	"github.com/techsift/techsift/export"
	"github.com/techsift/techsift/grammar"
	"github.com/techsift/techsift/metric"
	"github.com/techsift/techsift/pipeline"
	"github.com/techsift/techsift/platform"
	"github.com/techsift/techsift/section"
	"github.com/techsift/techsift/watch"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "techsift"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "techsift",
		Short: "Network diagnostic capture parser",
		Long: `Techsift turns raw network device output (show-tech bundles, CLI
transcripts, XML config exports) into normalized tabular entities.

It identifies the platform from content, segments the capture into
per-command sections, parses each section with a platform grammar,
and normalizes the results into a vendor-independent schema.
Unparseable content degrades to diagnostics, never to failure.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(parseCmd())
	cmd.AddCommand(sectionsCmd())
	cmd.AddCommand(platformsCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(slog.Default()).Load()
}

// expandArgs resolves glob patterns in file arguments; literal paths
// pass through so a missing file still errors loudly.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			files = append(files, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func buildPipeline(cfg *config.Config, platformHint string) (*pipeline.Pipeline, error) {
	var opts []pipeline.Option

	hint := platformHint
	if hint == "" {
		hint = cfg.Input.Platform
	}
	if hint != "" {
		tag := platform.Hinted(hint)
		if !tag.IsIdentified() {
			return nil, fmt.Errorf("unknown platform %q", hint)
		}
		opts = append(opts, pipeline.WithPlatformHint(tag))
	}

	if len(cfg.Parse.Aliases) > 0 {
		regOpts := []grammar.Option{grammar.WithLogger(slog.Default())}
		for p, aliases := range cfg.Parse.Aliases {
			regOpts = append(regOpts, grammar.WithAliases(platform.Platform(p), aliases))
		}
		reg, err := grammar.NewRegistry(regOpts...)
		if err != nil {
			return nil, fmt.Errorf("build grammar registry: %w", err)
		}
		opts = append(opts, pipeline.WithRegistry(reg))
	}

	return pipeline.New(opts...)
}

func parseCmd() *cobra.Command {
	var (
		platformHint string
		format       string
		outDir       string
		scan         bool
	)

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Parse capture files into canonical entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if format != "" {
				cfg.Export.Format = format
			}
			if outDir != "" {
				cfg.Export.Dir = outDir
			}
			exportFormat, err := export.ParseFormat(cfg.Export.Format)
			if err != nil {
				return err
			}

			files, err := expandArgs(args)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg, platformHint)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			for _, path := range files {
				c, err := capture.FromFile(path, cfg.Input.FallbackEncoding)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				if scan {
					printScan(cmd, path, p.Scan(c))
					continue
				}

				res, err := p.Run(ctx, c)
				if err != nil {
					return fmt.Errorf("process %s: %w", path, err)
				}
				if cfg.Export.Dir != "" && exportFormat == export.FormatCSV {
					if err := export.WriteCSVDir(cfg.Export.Dir, res); err != nil {
						return err
					}
					continue
				}
				if err := export.Write(cmd.OutOrStdout(), exportFormat, res); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platformHint, "platform", "", "Force the platform instead of identifying it")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, csv, json")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write per-kind CSV files into this directory")
	cmd.Flags().BoolVar(&scan, "scan", false, "Report sections and grammar coverage without parsing")

	return cmd
}

func printScan(cmd *cobra.Command, path string, res *pipeline.ScanResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: platform %s (confidence %.2f)\n",
		path, res.Platform.Platform, res.Platform.Confidence)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "command\tlines\tgrammar")
	for _, s := range res.Sections {
		grammarMark := "-"
		if s.HasGrammar {
			grammarMark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Command, s.Lines, grammarMark)
	}
	_ = tw.Flush()
}

func sectionsCmd() *cobra.Command {
	var platformHint string

	cmd := &cobra.Command{
		Use:   "sections [file]",
		Short: "Show the per-command sections of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			c, err := capture.FromFile(args[0], cfg.Input.FallbackEncoding)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			tag := platform.Hinted(platformHint)
			if !tag.IsIdentified() {
				tag = platform.Identify(c)
			}
			sections, diags := section.Extract(c, tag)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "platform: %s (confidence %.2f)\n", tag.Platform, tag.Confidence)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "command\tstart\tend")
			for _, s := range sections {
				name := s.Command
				if name == "" {
					name = "(preamble)"
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\n", name, s.StartLine, s.EndLine)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, d := range diags {
				fmt.Fprintf(out, "diagnostic: [%s] %s\n", d.Kind, d.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platformHint, "platform", "", "Force the platform instead of identifying it")
	return cmd
}

func platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms and their grammar coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := grammar.NewRegistry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "platform\tcommands")
			for _, p := range platform.All() {
				commands := reg.Commands(p)
				sort.Strings(commands)
				fmt.Fprintf(tw, "%s\t%s\n", p, strings.Join(commands, ", "))
			}
			return tw.Flush()
		},
	}
}

func watchCmd() *cobra.Command {
	var (
		platformHint string
		format       string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and parse captures as they arrive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(args) == 1 {
				cfg.Watch.Dir = args[0]
			}
			if cfg.Watch.Dir == "" {
				return fmt.Errorf("no watch directory given (argument or watch.dir in config)")
			}
			if format != "" {
				cfg.Export.Format = format
			}
			exportFormat, err := export.ParseFormat(cfg.Export.Format)
			if err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.Addr
			}

			bundle := metric.NewBundle()
			pipelineOpts := []pipeline.Option{pipeline.WithMetrics(bundle)}
			if platformHint != "" || cfg.Input.Platform != "" {
				hint := platformHint
				if hint == "" {
					hint = cfg.Input.Platform
				}
				tag := platform.Hinted(hint)
				if !tag.IsIdentified() {
					return fmt.Errorf("unknown platform %q", hint)
				}
				pipelineOpts = append(pipelineOpts, pipeline.WithPlatformHint(tag))
			}
			p, err := pipeline.New(pipelineOpts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           bundle.Handler(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					slog.Info("Metrics endpoint listening", "addr", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						slog.Error("Metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			w, err := watch.NewWatcher(watch.Config{
				Dir:              cfg.Watch.Dir,
				Patterns:         cfg.Watch.Patterns,
				Debounce:         cfg.Watch.GetDebounce(),
				FallbackEncoding: cfg.Input.FallbackEncoding,
				Logger:           slog.Default(),
			}, p)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}

			for {
				select {
				case <-ctx.Done():
					return w.Stop()
				case ev := <-w.Events():
					if ev.Error != nil {
						slog.Error("Capture failed", "path", ev.Path, "error", ev.Error)
						continue
					}
					if err := export.Write(cmd.OutOrStdout(), exportFormat, ev.Result); err != nil {
						slog.Error("Export failed", "path", ev.Path, "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&platformHint, "platform", "", "Force the platform instead of identifying it")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, csv, json")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}
