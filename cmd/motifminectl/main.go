package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"motifmine/internal/config"
	"motifmine/internal/logging"
	"motifmine/internal/metrics"
	"motifmine/pkg/motifmine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath   string
	storeKind    string
	dbPath       string
	artifactsDir string
	logLevel     string
	logFormat    string
	metricsOut   string

	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "motifminectl",
		Short:         "Discover recurring motifs in encoded symbol sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.metricsOut == "" || opts.registry == nil {
				return nil
			}
			if err := metrics.WriteTextfile(opts.metricsOut, opts.registry); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML or JSON config file")
	flags.StringVar(&opts.storeKind, "store", "", "store backend: memory|badger|sqlite (overrides config)")
	flags.StringVar(&opts.dbPath, "db-path", "", "badger directory or sqlite file (overrides config)")
	flags.StringVar(&opts.artifactsDir, "artifacts-dir", "", "artifact export directory (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: auto|text|json (overrides config)")
	flags.StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(
		newInitCmd(opts),
		newResetCmd(opts),
		newSearchCmd(opts),
		newMergeCmd(opts),
		newRunCmd(opts),
		newRunsCmd(opts),
		newCellsCmd(opts),
		newVocabCmd(opts),
		newFitnessCmd(opts),
		newLineageCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// loadConfig reads the config file, if any, and applies the persistent flag
// overrides on top.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.storeKind != "" {
		cfg.Store.Kind = o.storeKind
	}
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}
	if o.artifactsDir != "" {
		cfg.ArtifactsDir = o.artifactsDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// openClient builds a client from cfg. The caller closes it.
func (o *globalOptions) openClient(cmd *cobra.Command, cfg config.Config) (*motifmine.Client, error) {
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	clientOpts := motifmine.Options{Config: cfg, Logger: logger}
	if o.metricsOut != "" {
		o.registry = prometheus.NewRegistry()
		clientOpts.Registerer = o.registry
	}
	client, err := motifmine.NewClient(clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// withClient loads config, lets tune adjust it, opens a client and runs fn
// against it. tune may be nil.
func (o *globalOptions) withClient(cmd *cobra.Command, tune func(*config.Config), fn func(*motifmine.Client) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if tune != nil {
		tune(&cfg)
	}
	client, err := o.openClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	return fn(client)
}
