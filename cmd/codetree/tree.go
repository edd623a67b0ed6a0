package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kvisser/codetree/internal/config"
	"github.com/kvisser/codetree/internal/provider"
	"github.com/kvisser/codetree/internal/semtree"
	"github.com/kvisser/codetree/internal/store"
)

var (
	flagTreePath     string
	flagExportOut    string
	flagSummarizeOut string
	flagNoSource     bool
	flagBudget       int
	flagNoCache      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build the semantic tree and write it as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Print the semantic tree as an indented outline",
	Args:  cobra.NoArgs,
	RunE:  runDisplay,
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find tree nodes whose name matches a regular expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Collect relevant node texts for a query under a token budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate bottom-up LLM summaries for the semantic tree",
	Long:  "Summarizes interior nodes leaves-first using the configured provider. Results are cached in SQLite keyed by node and input hash, and the summarized tree is written as JSON when --out is set.",
	Args:  cobra.NoArgs,
	RunE:  runSummarize,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportOut, "out", "tree.json", "output path")
	exportCmd.Flags().BoolVar(&flagNoSource, "no-source", false, "omit source text from the export")

	displayCmd.Flags().StringVar(&flagTreePath, "tree", "", "load a saved tree JSON instead of re-indexing")

	contextCmd.Flags().StringVar(&flagTreePath, "tree", "", "load a saved tree JSON instead of re-indexing")
	contextCmd.Flags().IntVar(&flagBudget, "budget", 0, "token budget (default from config)")

	summarizeCmd.Flags().StringVar(&flagSummarizeOut, "out", "", "write the summarized tree JSON to this path")
	summarizeCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the summary cache")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(displayCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(summarizeCmd)
}

// loadOrBuildTree uses a saved JSON tree when --tree is set, otherwise
// indexes the project root.
func loadOrBuildTree(cmd *cobra.Command, cfg *config.Config) (*semtree.Tree, func(), error) {
	if flagTreePath != "" {
		tree, err := semtree.LoadJSON(flagTreePath)
		if err != nil {
			return nil, nil, err
		}
		return tree, func() {}, nil
	}
	tree, idx, err := buildTree(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return tree, idx.Close, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tree, idx, err := buildTree(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := tree.SaveJSON(flagExportOut, !flagNoSource); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Tree saved to %s (%d nodes)\n", flagExportOut, tree.Len())
	return nil
}

func runDisplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tree, cleanup, err := loadOrBuildTree(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tree.Display(cmd.OutOrStdout(), semtree.RootID)
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tree, idx, err := buildTree(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	ids, err := tree.Find(args[0])
	if err != nil {
		return err
	}
	for _, id := range ids {
		n, _ := tree.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", n.Kind, id)
	}
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tree, cleanup, err := loadOrBuildTree(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	budget := flagBudget
	if budget <= 0 {
		budget = cfg.Context.BudgetOrDefault()
	}

	out := tree.CollectContext(args[0], budget, semtree.CollectOptions{
		Score: semtree.KeywordScore,
	})
	ids := make([]string, 0, len(out))
	for id := range out {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "### %s\n%s\n\n", id, out[id])
	}
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tree, idx, err := buildTree(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	registry := provider.NewRegistry()
	p, err := registry.Create(
		cfg.Summarize.ProviderOrDefault(),
		cfg.Summarize.Endpoint,
		cfg.Summarize.Model,
		cfg.Summarize.Temperature,
	)
	if err != nil {
		return err
	}
	defer p.Close()

	var cache *store.Cache
	if !flagNoCache {
		path := cfg.Cache.Path
		if path == "" {
			dir, err := config.EnsureDataDir()
			if err != nil {
				return err
			}
			path = dir + "/summaries.db"
		}
		ttl := time.Duration(cfg.Cache.CacheTTLOrDefault()) * time.Hour
		cache, err = store.Open(path, ttl)
		if err != nil {
			log.Warn().Err(err).Msg("summary cache unavailable, continuing without it")
		}
		defer cache.Close()
	}

	opts := semtree.SummaryOptions{
		MaxWorkers:        cfg.Summarize.WorkersOrDefault(),
		IncludeLeafSource: true,
		PerNodeTimeout:    time.Duration(cfg.Summarize.TimeoutOrDefault()) * time.Second,
	}
	if cache != nil {
		opts.Cache = cache
	}

	start := time.Now()
	if err := tree.GenerateSummaries(cmd.Context(), provider.NewSummarizer(p), opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Summarized %d nodes in %s\n", tree.Len(), time.Since(start).Round(time.Millisecond))

	if flagSummarizeOut != "" {
		if err := tree.SaveJSON(flagSummarizeOut, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Tree saved to %s\n", flagSummarizeOut)
	}
	return nil
}
