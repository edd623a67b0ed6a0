package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kvisser/codetree/internal/config"
	"github.com/kvisser/codetree/internal/project"
	"github.com/kvisser/codetree/internal/semtree"
)

var (
	flagRoot         string
	flagConfig       string
	flagIncludeTests bool
)

var rootCmd = &cobra.Command{
	Use:           "codetree",
	Short:         "Index, navigate, and edit Python projects as a semantic tree",
	Long:          "codetree parses a Python project with tree-sitter, exposes an addressable symbol table with structural editing, and builds a semantic tree with LLM summaries for token-budgeted context collection.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run, prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: <root>/codetree.toml if present)")
	rootCmd.PersistentFlags().BoolVar(&flagIncludeTests, "include-tests", false, "index test files too")
}

// loadConfig reads the configured TOML file, falls back to <root>/codetree.toml,
// and finally to built-in defaults when no file exists.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		candidate := filepath.Join(flagRoot, "codetree.toml")
		if _, err := os.Stat(candidate); err != nil {
			return config.Default(), nil
		}
		path = candidate
	}
	return config.Load(path)
}

func buildIndex(ctx context.Context, cfg *config.Config) (*project.Index, error) {
	idx, err := project.NewIndex(flagRoot)
	if err != nil {
		return nil, err
	}
	err = idx.Build(ctx, project.BuildOptions{
		IncludeTests: flagIncludeTests || cfg.Project.IncludeTests,
		Concurrency:  cfg.Project.Concurrency,
		MaxFileSize:  cfg.Project.MaxFileBytesOrDefault(),
	})
	if err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func buildTree(ctx context.Context, cfg *config.Config) (*semtree.Tree, *project.Index, error) {
	idx, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	tree, err := semtree.Build(idx, filepath.Base(idx.Root()))
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	return tree, idx, nil
}
