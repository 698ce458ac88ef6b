// Package main provides the semsynopsis binary entry point.
// Semsynopsis coordinates annotated parallel text views: it resolves
// annotation styles, keeps views scrolled to aligned segments and publishes
// the selected annotation to detail panels.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/annotation"
	"github.com/c360studio/semsynopsis/config"
	"github.com/c360studio/semsynopsis/fetch"
	"github.com/c360studio/semsynopsis/ontology"
	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/vocabulary"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semsynopsis"

	shutdownTimeout = 30 * time.Second
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

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Annotated parallel text coordinator",
		Long: `Semsynopsis coordinates views of annotated parallel texts.

It provides:
- Annotation highlighting from ontology style rules
- Scroll synchronization across aligned texts
- Annotation details for selection panels

Views connect over WebSocket or NATS. Running without a subcommand serves.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, "")
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(&flags),
		styleCmd(&flags),
		alignCmd(&flags),
		configCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the synopsis coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *flags, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, flags globalFlags, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(os.Stderr, flags.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	printBanner()

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := app.Start(signalCtx); err != nil {
		app.Shutdown(shutdownTimeout)
		return err
	}

	slog.Info("Semsynopsis ready",
		"version", Version,
		"addr", app.Addr().String(),
		"transports", cfg.Server.Transports)

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case err = <-app.Errors():
		slog.Error("Server failed", "error", err)
	}

	app.Shutdown(shutdownTimeout)
	slog.Info("Semsynopsis shutdown complete")
	return err
}

func styleCmd(flags *globalFlags) *cobra.Command {
	var (
		ontologies  []string
		annotations string
		segments    string
	)
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Resolve the per-segment style of a text offline",
		Long: `Resolve the per-segment style of a text from its ontology, annotation
and annotations-per-segment sources and print it as JSON.

Flags default to the sources of the loaded configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)
			cfg, err := config.NewLoader(logger).Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(ontologies) == 0 {
				ontologies = cfg.Sources.Ontologies
			}
			if annotations == "" {
				annotations = cfg.Sources.Annotations
			}
			if segments == "" {
				return fmt.Errorf("--segments is required")
			}

			css, err := resolveStyle(cmd.Context(), cfg, logger, ontologies, annotations, segments)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), css)
		},
	}
	cmd.Flags().StringSliceVar(&ontologies, "ontology", nil, "Ontology locations or glob patterns")
	cmd.Flags().StringVar(&annotations, "annotations", "", "Annotations location")
	cmd.Flags().StringVar(&segments, "segments", "", "Annotations-per-segment location")
	return cmd
}

func resolveStyle(ctx context.Context, cfg *config.Config, logger *slog.Logger, ontologies []string, annotationsLocation, segmentsLocation string) (style.PerSegment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := newLoader(cfg, logger)

	locations, err := fetch.ResolveLocations(ontologies)
	if err != nil {
		return nil, err
	}
	store := ontology.NewStore()
	for _, location := range locations {
		statements, _, ok := fetch.DecodeJSON[vocabulary.Statements](ctx, loader, location)
		if !ok {
			return nil, fmt.Errorf("load ontology %s", location)
		}
		store.Set(location, statements)
	}

	set, _, ok := fetch.DecodeJSON[annotation.Set](ctx, loader, annotationsLocation)
	if !ok {
		return nil, fmt.Errorf("load annotations %s", annotationsLocation)
	}
	perSegment, _, ok := fetch.DecodeJSON[segment.AnnotationsPerSegment](ctx, loader, segmentsLocation)
	if !ok {
		return nil, fmt.Errorf("load segments %s", segmentsLocation)
	}

	opts := style.Options{DefaultColor: cfg.Style.DefaultColor, Property: cfg.Style.Property}
	perAnnotation, ok := style.ResolveAnnotationStyles(store.Current(), annotation.NewSnapshot(set), opts)
	if !ok {
		return nil, fmt.Errorf("no annotation styles: ontology or annotations are empty")
	}
	css, _ := style.ResolvePerSegmentStyle(perAnnotation, perSegment, logger)
	return css, nil
}

func alignCmd(flags *globalFlags) *cobra.Command {
	var (
		regexLocation   string
		mappingLocation string
		source          string
		target          string
	)
	cmd := &cobra.Command{
		Use:   "align [segment-id...]",
		Short: "Resolve aligned segments between two texts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)
			cfg, err := config.NewLoader(logger).Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if regexLocation == "" {
				regexLocation = cfg.Sources.RegexAlignment
			}
			if mappingLocation == "" {
				mappingLocation = cfg.Sources.MappingAlignment
			}
			if source == "" || target == "" {
				return fmt.Errorf("--source and --target are required")
			}

			table, err := loadAlignment(cmd.Context(), cfg, logger, regexLocation, mappingLocation)
			if err != nil {
				return err
			}
			segmentID, ok := table.Resolve(source, target, args)
			if !ok {
				return fmt.Errorf("no aligned segment in %s for %s", target, strings.Join(args, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), segmentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&regexLocation, "regex", "", "Regex alignment location")
	cmd.Flags().StringVar(&mappingLocation, "mapping", "", "Mapping alignment location")
	cmd.Flags().StringVar(&source, "source", "", "Source text id")
	cmd.Flags().StringVar(&target, "target", "", "Target text id")
	return cmd
}

func loadAlignment(ctx context.Context, cfg *config.Config, logger *slog.Logger, regexLocation, mappingLocation string) (*alignment.Table, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if regexLocation == "" && mappingLocation == "" {
		return nil, fmt.Errorf("no alignment source: set --regex or --mapping")
	}
	loader := newLoader(cfg, logger)

	var regex alignment.RegexAlignment
	var mapping alignment.MappingAlignment
	if regexLocation != "" {
		var ok bool
		if regex, _, ok = fetch.DecodeJSON[alignment.RegexAlignment](ctx, loader, regexLocation); !ok {
			return nil, fmt.Errorf("load regex alignment %s", regexLocation)
		}
	}
	if mappingLocation != "" {
		var ok bool
		if mapping, _, ok = fetch.DecodeJSON[alignment.MappingAlignment](ctx, loader, mappingLocation); !ok {
			return nil, fmt.Errorf("load mapping alignment %s", mappingLocation)
		}
	}
	return alignment.NewTable(regex, mapping, logger), nil
}

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)
				cfg, applied, err := config.NewLoader(logger).Resolve(flags.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, layer := range applied {
					fmt.Fprintf(out, "# %s: %s\n", layer.Name, layer.Path)
				}
				_, err = out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default user configuration if missing",
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)
				path, err := config.NewLoader(logger).EnsureUserConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}

func newLoader(cfg *config.Config, logger *slog.Logger) *fetch.Loader {
	fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
	return fetch.NewLoader(fetcher, fetch.WithLogger(logger))
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║           Semsynopsis v" + Version + "                  ║")
	fmt.Println("║   Annotated Parallel Text Coordinator         ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
