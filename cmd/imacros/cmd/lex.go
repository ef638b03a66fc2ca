package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chapelsoftware/go-imacros/internal/parser"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file.iim>",
	Short: "Tokenize a macro and print one token per line",
	Long: `Tokenize an iim macro and print each parameter token with its
classification (named or positional).

This is the low-level view under parse: it shows how the scanner split
each line, which is useful when quoting or '=' handling surprises you.

Examples:
  imacros lex login.iim`,
	Args: cobra.ExactArgs(1),
	RunE: lexMacro,
}

func init() {
	rootCmd.AddCommand(lexCmd)
}

func lexMacro(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	cmds, err := parser.Parse(string(source))
	if err != nil {
		return fmt.Errorf("lex error: %w", err)
	}

	for _, c := range cmds {
		fmt.Printf("%4d  KIND       %s\n", c.Line, c.Kind)
		for _, p := range c.Params {
			if p.Named {
				fmt.Printf("      NAMED      %s=%q\n", p.Key, p.Value)
			} else {
				fmt.Printf("      POSITIONAL %q\n", p.Value)
			}
		}
	}
	return nil
}
