package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chapelsoftware/go-imacros/internal/macro"
	"github.com/chapelsoftware/go-imacros/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.iim>",
	Short: "Parse a macro and dump its commands",
	Long: `Parse an iim macro and print the command list without executing it.

Useful for checking what the player will see: canonical command kinds,
named and positional parameters, referenced variables.

Examples:
  # Dump a macro's command list
  imacros parse login.iim`,
	Args: cobra.ExactArgs(1),
	RunE: parseMacro,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func parseMacro(_ *cobra.Command, args []string) error {
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	cmds, err := parser.Parse(string(source))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	for _, c := range cmds {
		kind := c.Kind
		if kind == macro.KindUnknown {
			kind = fmt.Sprintf("%s (raw: %s)", macro.KindUnknown, c.Raw)
		}
		fmt.Printf("%4d  %s\n", c.Line, kind)
		for _, p := range c.Params {
			if p.Named {
				fmt.Printf("        %s = %q\n", p.Key, p.Value)
			} else {
				fmt.Printf("        %q\n", p.Value)
			}
		}
		if len(c.Refs) > 0 {
			fmt.Printf("        refs: %v\n", c.Refs)
		}
	}
	return nil
}
