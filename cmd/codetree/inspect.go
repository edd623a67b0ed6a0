package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/codetree/internal/highlight"
)

var (
	flagContextLines int
	flagPlain        bool
	flagTheme        string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project and report what was found",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the symbols of an indexed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Print a compact symbol outline of the whole project",
	Args:  cobra.NoArgs,
	RunE:  runOutline,
}

var showCmd = &cobra.Command{
	Use:   "show <file> <symbol>",
	Short: "Print the source of a symbol",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVar(&flagContextLines, "context", 0, "surrounding lines to include on each side")
	showCmd.Flags().BoolVar(&flagPlain, "plain", false, "disable syntax highlighting")
	showCmd.Flags().StringVar(&flagTheme, "theme", "", "chroma theme (default from config)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(showCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start := time.Now()
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	symbols := 0
	for _, file := range idx.Files() {
		recs, err := idx.ListSymbols(file)
		if err != nil {
			continue
		}
		symbols += len(recs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files, %d symbols in %s\n",
		len(idx.Files()), symbols, time.Since(start).Round(time.Millisecond))
	return nil
}

func runSymbols(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	recs, err := idx.ListSymbols(args[0])
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-40s %d-%d\n",
			rec.Kind, rec.QualName, rec.Pos.StartLine, rec.Pos.EndLine)
	}
	return nil
}

func runOutline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	fmt.Fprint(cmd.OutOrStdout(), idx.Outline())
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	rec, err := idx.Resolve(args[0], args[1])
	if err != nil {
		return err
	}
	var src string
	if flagContextLines > 0 {
		src, err = idx.SourceWithContext(rec, flagContextLines, flagContextLines)
	} else {
		src, err = idx.Source(rec)
	}
	if err != nil {
		return err
	}

	if !flagPlain {
		theme := flagTheme
		if theme == "" {
			theme = cfg.UI.SyntaxThemeOrDefault()
		}
		src = highlight.Highlight(src, "python", theme)
	}
	fmt.Fprintln(cmd.OutOrStdout(), src)
	return nil
}
