package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/zero-day-ai/attackgraph/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "attackgraph",
	Short: "Ingest the MITRE ATT&CK STIX bundle into a Neo4j property graph",
	Long: `attackgraph transforms the MITRE ATT&CK enterprise STIX bundle into a
labeled property graph: Technique, Group, Tool, Mitigation, Tactic, Campaign,
and Malware nodes linked by USES, MITIGATES, REQUIRES_TACTIC,
SUBTECHNIQUE_OF, and ATTRIBUTED_TO edges.

Ingestion is idempotent: re-running against the same bundle leaves the graph
unchanged, and a newer bundle refreshes node properties in place.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command with the given base context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to attackgraph.yaml (or a directory containing it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig resolves configuration from the --config flag, falling back to
// defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	return cfg, nil
}

// setupTracing installs a tracer provider carrying service identity so
// ingest spans are attributed correctly when an exporter is wired in by the
// environment. Returns a shutdown function.
func setupTracing(ctx context.Context) func(context.Context) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("attackgraph")),
	)
	if err != nil {
		slog.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("failed to shutdown tracer provider", "error", err)
		}
	}
}
