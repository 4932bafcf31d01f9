package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"motifmine/internal/config"
	"motifmine/internal/evo"
	"motifmine/internal/symbol"
	"motifmine/pkg/motifmine"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				fmt.Fprintf(cmd.OutOrStdout(), "initialized store=%s\n", storeName(client.Config()))
				return nil
			})
		},
	}
}

func newResetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every run from the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				if err := client.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset store=%s\n", storeName(client.Config()))
				return nil
			})
		},
	}
}

// searchFlags override the search section of the config when set.
type searchFlags struct {
	input     string
	runID     string
	source    string
	width     int
	pop       int
	lower     int
	upper     int
	maxIter   int
	threshold float64
	diversity float64
	extend    int
	selection string
	seed      int64
}

func (f *searchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.input, "input", "i", "", "encoding file: sentinel-delimited rows or one row per line")
	fs.StringVar(&f.runID, "run-id", "", "explicit run id (default: random uuid)")
	fs.StringVar(&f.source, "source", "", "free-form label stored with the run (default: input path)")
	fs.IntVar(&f.width, "width", symbol.DefaultWidth, "characters per token")
	fs.IntVar(&f.pop, "pop", 0, "population size")
	fs.IntVar(&f.lower, "lower", 0, "minimum individual length in tokens")
	fs.IntVar(&f.upper, "upper", 0, "maximum individual length in tokens")
	fs.IntVar(&f.maxIter, "max-iter", 0, "generation cap per row")
	fs.Float64Var(&f.threshold, "threshold", 0, "coverage score that ends a row search")
	fs.Float64Var(&f.diversity, "diversity", 0, "fraction of top-ranked survivors skipped each generation")
	fs.IntVar(&f.extend, "extend-length", 0, "maximum tokens added or removed by one mutation")
	fs.StringVar(&f.selection, "selection", "", "parent selection: "+strings.Join(evo.ListSelectors(), "|"))
	fs.Int64Var(&f.seed, "seed", 0, "rng seed")
	_ = cmd.MarkFlagRequired("input")
}

func (f *searchFlags) apply(cmd *cobra.Command) func(*config.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		if changed("width") {
			cfg.Width = f.width
		}
		if changed("pop") {
			cfg.Search.PopulationSize = f.pop
		}
		if changed("lower") {
			cfg.Search.Bounds.Lower = f.lower
		}
		if changed("upper") {
			cfg.Search.Bounds.Upper = f.upper
		}
		if changed("max-iter") {
			cfg.Search.MaxIter = f.maxIter
		}
		if changed("threshold") {
			cfg.Search.Threshold = f.threshold
		}
		if changed("diversity") {
			cfg.Search.Diversity = f.diversity
		}
		if changed("extend-length") {
			cfg.Search.ExtendLength = f.extend
		}
		if changed("selection") {
			cfg.Search.Selection = f.selection
		}
		if changed("seed") {
			cfg.Search.Seed = f.seed
		}
	}
}

func (f *searchFlags) request() (motifmine.SearchRequest, error) {
	encoding, err := symbol.ReadEncodingFile(f.input)
	if err != nil {
		return motifmine.SearchRequest{}, err
	}
	source := f.source
	if source == "" {
		source = f.input
	}
	return motifmine.SearchRequest{RunID: f.runID, Source: source, Encoding: encoding}, nil
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the genetic motif search and store its cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			return opts.withClient(cmd, flags.apply(cmd), func(client *motifmine.Client) error {
				summary, err := client.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				printSearch(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newMergeCmd(opts *globalOptions) *cobra.Command {
	var (
		runID     string
		latest    bool
		maxRounds int
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the cells of a searched run into a node vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tune := func(cfg *config.Config) {
				if cmd.Flags().Changed("max-rounds") {
					cfg.Merge.MaxRounds = maxRounds
				}
			}
			return opts.withClient(cmd, tune, func(client *motifmine.Client) error {
				summary, err := client.Merge(cmd.Context(), motifmine.MergeRequest{RunID: runID, Latest: latest})
				if err != nil {
					return err
				}
				printMerge(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run to merge")
	cmd.Flags().BoolVar(&latest, "latest", false, "merge the most recent run")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "merge round cap")
	return cmd
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	flags := &searchFlags{}
	var maxRounds int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search, merge and export in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			applySearch := flags.apply(cmd)
			tune := func(cfg *config.Config) {
				applySearch(cfg)
				if cmd.Flags().Changed("max-rounds") {
					cfg.Merge.MaxRounds = maxRounds
				}
			}
			return opts.withClient(cmd, tune, func(client *motifmine.Client) error {
				summary, err := client.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printSearch(out, summary.Search)
				printMerge(out, summary.Merge)
				fmt.Fprintf(out, "artifacts=%s\n", client.Config().ArtifactsDir)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "merge round cap")
	return cmd
}

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				runs, err := client.Runs(cmd.Context(), motifmine.RunsRequest{Limit: limit})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, runs)
				}
				for _, run := range runs {
					fmt.Fprintf(out, "run_id=%s stage=%s rows=%s converged=%d mean_best=%.4f cells=%d vocabulary=%d created=%s\n",
						run.RunID, run.Stage, humanize.Comma(int64(run.Rows)), run.ConvergedRows, run.MeanBestScore,
						run.Cells, run.Vocabulary, humanize.Time(run.CreatedAtUTC))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// refFlags select a stored run for the read-only commands.
type refFlags struct {
	runID  string
	latest bool
	limit  int
	asJSON bool
}

func (f *refFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&f.latest, "latest", false, "use the most recent run")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum entries to print (0 prints all)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON")
}

func (f *refFlags) ref() motifmine.RunRef {
	return motifmine.RunRef{RunID: f.runID, Latest: f.latest, Limit: f.limit}
}

func newCellsCmd(opts *globalOptions) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "cells",
		Short: "Print the search cells of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				cells, err := client.Cells(cmd.Context(), flags.ref())
				if err != nil {
					return err
				}
				if flags.asJSON {
					return writeJSON(cmd.OutOrStdout(), cells)
				}
				printWords(cmd.OutOrStdout(), cells)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newVocabCmd(opts *globalOptions) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print the merged node vocabulary of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				vocabulary, err := client.Vocabulary(cmd.Context(), flags.ref())
				if err != nil {
					return err
				}
				if flags.asJSON {
					return writeJSON(cmd.OutOrStdout(), vocabulary)
				}
				printWords(cmd.OutOrStdout(), vocabulary.Nodes)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newFitnessCmd(opts *globalOptions) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Print the per-row search scores of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				history, err := client.FitnessHistory(cmd.Context(), flags.ref())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.asJSON {
					return writeJSON(out, history)
				}
				for _, row := range history {
					fmt.Fprintf(out, "row=%d best=%.4f epochs=%s converged=%t population=%d\n",
						row.Row, row.BestScore, humanize.Comma(int64(row.Epochs)), row.Converged, len(row.BestPopulation))
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newLineageCmd(opts *globalOptions) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Print the merge events of a run in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				events, err := client.MergeHistory(cmd.Context(), flags.ref())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.asJSON {
					return writeJSON(out, events)
				}
				for _, event := range events {
					fmt.Fprintf(out, "round=%d kind=%s in=%q out=%q merged=%q weight=%d frequency=%d\n",
						event.Round, event.Kind, event.In, event.Out, event.Merged, event.Weight, event.MergedFrequency)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		runID  string
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the artifacts of a run as JSON files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == "" && !latest {
				return errors.New("export requires --run-id or --latest")
			}
			return opts.withClient(cmd, nil, func(client *motifmine.Client) error {
				summary, err := client.Export(cmd.Context(), motifmine.ExportRequest{
					RunRef: motifmine.RunRef{RunID: runID, Latest: latest},
					OutDir: outDir,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run to export")
	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: artifacts dir)")
	return cmd
}

func printSearch(w io.Writer, s motifmine.SearchSummary) {
	fmt.Fprintf(w, "searched run_id=%s rows=%s converged=%d mean_best=%.4f cells=%d\n",
		s.RunID, humanize.Comma(int64(s.Rows)), s.ConvergedRows, s.MeanBestScore, len(s.Cells))
}

func printMerge(w io.Writer, m motifmine.MergeSummary) {
	fmt.Fprintf(w, "merged run_id=%s vocabulary=%d merges=%d rounds=%s converged=%t missed=%d\n",
		m.RunID, len(m.Vocabulary), m.Merges, humanize.Comma(int64(m.Rounds)), m.Converged, m.Missed)
}

func printWords(w io.Writer, words []string) {
	for _, word := range words {
		fmt.Fprintln(w, word)
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func storeName(cfg config.Config) string {
	if cfg.Store.Path == "" {
		return cfg.Store.Kind
	}
	return strings.Join([]string{cfg.Store.Kind, cfg.Store.Path}, ":")
}
