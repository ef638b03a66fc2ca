package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chapelsoftware/go-imacros/pkg/imacros"
)

var (
	runVars        []string
	profilePath    string
	errorIgnore    bool
	lenientUnknown bool
)

var runCmd = &cobra.Command{
	Use:   "run <file.iim>",
	Short: "Play a macro file",
	Long: `Parse and play back an iim macro.

The process exit status is 0 on success; on failure the legacy error
code and message are printed to stderr.

Examples:
  # Play a macro
  imacros run login.iim

  # Seed variables before playback
  imacros run --var !VAR1=alice --var !VAR2=secret login.iim

  # Keep going past command failures
  imacros run --errorignore batch.iim`,
	Args: cobra.ExactArgs(1),
	RunE: runMacro,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "seed a variable as NAME=VALUE (repeatable)")
	runCmd.Flags().StringVar(&profilePath, "profile", "", "YAML profile overriding engine defaults")
	runCmd.Flags().BoolVar(&errorIgnore, "errorignore", false, "set !ERRORIGNORE=YES before playback")
	runCmd.Flags().BoolVar(&lenientUnknown, "lenient-unknown", false, "skip unknown commands with a warning instead of failing")
}

func runMacro(cmd *cobra.Command, args []string) error {
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	opts := []imacros.Option{
		imacros.WithLogger(logger),
		imacros.WithVersion(Version),
	}
	if lenientUnknown {
		opts = append(opts, imacros.WithLenientUnknown())
	}
	engine := imacros.New(opts...)

	load := engine.LoadMacro(string(source), filename)
	if !load.Success {
		fmt.Fprintf(os.Stderr, "parse error (%d) at line %d: %s\n", load.Code, load.Line, load.Message)
		return fmt.Errorf("parse failed")
	}

	profile, err := loadProfile(profilePath)
	if err != nil {
		return err
	}
	if err := profile.apply(engine); err != nil {
		return err
	}
	if errorIgnore {
		if err := engine.SetVariable("!ERRORIGNORE", "YES"); err != nil {
			return err
		}
	}
	for _, kv := range runVars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, need NAME=VALUE", kv)
		}
		if err := engine.SetVariable(name, value); err != nil {
			return fmt.Errorf("--var %s: %w", name, err)
		}
	}

	// Ctrl-C stops the macro at the next check point; a second one
	// kills the process via the default handler.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := engine.Execute(ctx)
	if !res.Success {
		fmt.Fprintf(os.Stderr, "macro failed (%d) at line %d: %s\n", res.Code, res.Line, res.Message)
		return fmt.Errorf("macro failed")
	}

	if extracts := engine.Extracts(); len(extracts) > 0 {
		for _, v := range extracts {
			fmt.Println(v)
		}
	}
	return nil
}
