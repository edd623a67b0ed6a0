package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvisser/codetree/internal/editor"
)

var (
	flagLine  int
	flagMode  string
	flagCode  string
	flagWrite bool
)

var editCmd = &cobra.Command{
	Use:   "edit <file> <symbol>",
	Short: "Insert or replace statements inside a function body",
	Long:  "Applies a structural edit at a line relative to the function definition, prints the resulting unified diff, and optionally writes the file back to disk. Statements are re-indented to the insertion point automatically.",
	Args:  cobra.ExactArgs(2),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().IntVar(&flagLine, "line", 0, "line offset relative to the def line (0 = first body statement)")
	editCmd.Flags().StringVar(&flagMode, "mode", "insert", "edit mode: insert|replace")
	editCmd.Flags().StringVar(&flagCode, "code", "", "statements to apply (reads stdin when omitted)")
	editCmd.Flags().BoolVar(&flagWrite, "write", false, "write the edited file back to disk")

	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	mode, err := editor.ParseMode(flagMode)
	if err != nil {
		return err
	}
	code := flagCode
	if code == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read statements from stdin: %w", err)
		}
		code = string(raw)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	file, symbol := args[0], args[1]
	before, err := idx.FileSource(file)
	if err != nil {
		return err
	}

	_, after, err := idx.EditSymbol(file, symbol, flagLine, code, mode)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), editor.Diff(file, before, after))

	if flagWrite {
		path := idx.Abs(file)
		if err := os.WriteFile(path, []byte(after), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	}
	return nil
}
