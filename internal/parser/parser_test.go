package parser

import (
	"reflect"
	"testing"

	"github.com/chapelsoftware/go-imacros/internal/macro"
)

func TestParseBasicCommands(t *testing.T) {
	input := `VERSION BUILD=8031994
URL GOTO=http://example.com/login?next=home
TAG POS=1 TYPE=INPUT:TEXT ATTR=ID:user CONTENT=alice
SET !VAR1 hello
`

	cmds, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cmds) != 4 {
		t.Fatalf("expected 4 commands, got %d", len(cmds))
	}

	tests := []struct {
		kind string
		line int
	}{
		{"VERSION", 1},
		{"URL", 2},
		{"TAG", 3},
		{"SET", 4},
	}
	for i, tt := range tests {
		if cmds[i].Kind != tt.kind {
			t.Errorf("cmds[%d].Kind = %q, want %q", i, cmds[i].Kind, tt.kind)
		}
		if cmds[i].Line != tt.line {
			t.Errorf("cmds[%d].Line = %d, want %d", i, cmds[i].Line, tt.line)
		}
	}

	// URL value keeps everything after GOTO=, including the inner '='.
	if v, _ := cmds[1].Lookup("GOTO"); v != "http://example.com/login?next=home" {
		t.Errorf("GOTO value = %q", v)
	}

	// SET arguments are positional.
	if got := cmds[3].Positionals(); !reflect.DeepEqual(got, []string{"!VAR1", "hello"}) {
		t.Errorf("SET positionals = %v", got)
	}
}

func TestParseCommentsAndBlankLines(t *testing.T) {
	input := "' full line comment\n\n// another comment\nSET !VAR1 x\n"
	cmds, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Line != 4 {
		t.Errorf("line = %d, want 4", cmds[0].Line)
	}
}

func TestParseLineContinuation(t *testing.T) {
	input := "TAG POS=1 \\\nTYPE=INPUT:TEXT \\\nATTR=ID:user\n"
	cmds, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if len(cmds[0].Params) != 3 {
		t.Errorf("expected 3 params, got %d: %v", len(cmds[0].Params), cmds[0].Params)
	}
	if cmds[0].Line != 1 {
		t.Errorf("line = %d, want 1", cmds[0].Line)
	}
}

func TestParseQuoting(t *testing.T) {
	tests := []struct {
		input string
		key   string
		want  string
	}{
		{`PROMPT MESSAGE="hello world"`, "MESSAGE", "hello world"},
		{`PROMPT MESSAGE="say ""hi"""`, "MESSAGE", `say "hi"`},
		{`TAG CONTENT="a=b"`, "CONTENT", "a=b"},
		{`ONDOWNLOAD FOLDER="C:\Down loads"`, "FOLDER", `C:\Down loads`},
	}
	for _, tt := range tests {
		cmds, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.input, err)
		}
		v, ok := cmds[0].Lookup(tt.key)
		if !ok {
			t.Fatalf("Parse(%q): %s not found", tt.input, tt.key)
		}
		if v != tt.want {
			t.Errorf("Parse(%q): %s = %q, want %q", tt.input, tt.key, v, tt.want)
		}
	}
}

func TestParseQuotedPositional(t *testing.T) {
	cmds, err := Parse(`PROMPT "Enter a value" !VAR1 "default text"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := cmds[0].Positionals()
	want := []string{"Enter a value", "!VAR1", "default text"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("positionals = %v, want %v", got, want)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	cmds, err := Parse("FLY TO=THE:MOON\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cmds[0].Kind != macro.KindUnknown {
		t.Errorf("kind = %q, want %q", cmds[0].Kind, macro.KindUnknown)
	}
	if cmds[0].Raw != "FLY TO=THE:MOON" {
		t.Errorf("raw = %q", cmds[0].Raw)
	}
}

func TestParseReferencedVariables(t *testing.T) {
	cmds, err := Parse("URL GOTO={{BASE}}/item/{{!LOOP}}\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"BASE", "!LOOP"}
	if !reflect.DeepEqual(cmds[0].Refs, want) {
		t.Errorf("refs = %v, want %v", cmds[0].Refs, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{"SET !VAR1 \"unterminated\n", 1},
		{"SET !VAR1 x\nWAIT SECONDS=1 \\", 2},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, expected error", tt.input)
			continue
		}
		perr, ok := err.(*Error)
		if !ok {
			t.Errorf("Parse(%q) error type %T", tt.input, err)
			continue
		}
		if perr.Line != tt.line {
			t.Errorf("Parse(%q) error line = %d, want %d", tt.input, perr.Line, tt.line)
		}
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	lines := []string{
		"SET !VAR1 hello",
		"TAG POS=1 TYPE=INPUT:TEXT ATTR=ID:user CONTENT=alice",
		`PROMPT "two words" !VAR2 fallback`,
		`ONDOWNLOAD FOLDER=* FILE=+ WAIT=YES`,
		`TAG CONTENT="a=b c"`,
		`PROMPT MESSAGE="say ""hi"""`,
	}
	for _, line := range lines {
		first, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", line, err)
		}
		second, err := Parse(first[0].String())
		if err != nil {
			t.Fatalf("reparse of %q failed: %v", first[0].String(), err)
		}
		if first[0].Kind != second[0].Kind || !reflect.DeepEqual(first[0].Params, second[0].Params) {
			t.Errorf("round trip of %q changed the command:\n first=%+v\nsecond=%+v",
				line, first[0], second[0])
		}
	}
}
