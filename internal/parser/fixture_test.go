package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestMacroFixtures parses every .iim fixture under testdata/macros and
// snapshots a structured dump of the resulting command list. This pins
// the parser's output shape for realistic macros end to end.
func TestMacroFixtures(t *testing.T) {
	pattern := filepath.Join("..", "..", "testdata", "macros", "*.iim")
	files, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no fixtures found under %s", pattern)
	}
	sort.Strings(files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".iim")
		t.Run(name, func(t *testing.T) {
			source, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("read fixture: %v", err)
			}
			cmds, err := Parse(string(source))
			if err != nil {
				t.Fatalf("parse fixture: %v", err)
			}

			var sb strings.Builder
			for _, cmd := range cmds {
				fmt.Fprintf(&sb, "%3d %s\n", cmd.Line, cmd.Kind)
				for _, p := range cmd.Params {
					if p.Named {
						fmt.Fprintf(&sb, "      %s = %q\n", p.Key, p.Value)
					} else {
						fmt.Fprintf(&sb, "      arg %q\n", p.Value)
					}
				}
				if len(cmd.Refs) > 0 {
					fmt.Fprintf(&sb, "      refs %v\n", cmd.Refs)
				}
			}
			snaps.MatchSnapshot(t, sb.String())
		})
	}
}
