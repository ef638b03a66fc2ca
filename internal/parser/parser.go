// Package parser converts iim macro source text into macro.Command
// records. The dialect is line-oriented: each non-empty, non-comment line
// is one command. The scanner is hand-written; the legacy quoting rules
// (double quotes with "" escapes, quotes opening mid-token after '=') do
// not map onto any general-purpose grammar tool.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/chapelsoftware/go-imacros/internal/macro"
)

// Error is a parse-time failure. Parsing aborts before execution begins;
// the line number points at the offending physical line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse converts macro source into an ordered command list. Unknown
// commands do not fail the parse; they are returned with kind UNKNOWN and
// the raw line preserved so the executor can apply its policy. Structural
// problems (unterminated quote, dangling continuation) return an *Error.
func Parse(source string) ([]macro.Command, error) {
	var commands []macro.Command

	lines := strings.Split(source, "\n")
	for i := 0; i < len(lines); i++ {
		startLine := i + 1
		logical := strings.TrimSuffix(lines[i], "\r")

		// Trailing backslash escapes the line feed and joins the next
		// physical line.
		for strings.HasSuffix(logical, "\\") {
			if i+1 >= len(lines) {
				return nil, &Error{Line: i + 1, Msg: "line continuation at end of input"}
			}
			i++
			logical = logical[:len(logical)-1] + strings.TrimSuffix(lines[i], "\r")
		}

		trimmed := strings.TrimSpace(logical)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		cmd, err := parseLine(trimmed, startLine)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "'") || strings.HasPrefix(line, "//")
}

func parseLine(line string, lineNum int) (macro.Command, error) {
	s := &scanner{input: line, line: lineNum}

	first, err := s.next()
	if err != nil {
		return macro.Command{}, err
	}

	kind := strings.ToUpper(first.Value)
	cmd := macro.Command{Kind: kind, Raw: line, Line: lineNum}
	if !macro.KnownKind(kind) {
		cmd.Kind = macro.KindUnknown
	}

	for {
		p, err := s.next()
		if err != nil {
			return macro.Command{}, err
		}
		if p == nil {
			break
		}
		cmd.Params = append(cmd.Params, *p)
		for _, ref := range macro.ScanRefs(p.Value) {
			if !containsRef(cmd.Refs, ref) {
				cmd.Refs = append(cmd.Refs, ref)
			}
		}
	}

	return cmd, nil
}

func containsRef(refs []string, name string) bool {
	for _, r := range refs {
		if r == name {
			return true
		}
	}
	return false
}

// scanner splits one logical line into parameters. Tokens are separated
// by unquoted whitespace. A token of the form KEY=VALUE, with the key
// matching [A-Z_][A-Z0-9_]*, is a named parameter; anything else is
// positional. Double quotes delimit runs that may contain whitespace and
// '='; an inner "" is a literal quote.
type scanner struct {
	input string
	pos   int
	line  int
}

func (s *scanner) next() (*macro.Param, error) {
	for s.pos < len(s.input) && unicode.IsSpace(rune(s.input[s.pos])) {
		s.pos++
	}
	if s.pos >= len(s.input) {
		return nil, nil
	}

	var key string
	var value strings.Builder
	named := false

	// Scan a key candidate up to the first '=' outside quotes. A token
	// starting with a quote is always positional.
	if s.input[s.pos] != '"' {
		start := s.pos
		for s.pos < len(s.input) {
			ch := s.input[s.pos]
			if ch == '=' {
				candidate := strings.ToUpper(s.input[start:s.pos])
				if isParamKey(candidate) {
					key = candidate
					named = true
					s.pos++ // consume '='
				}
				break
			}
			if unicode.IsSpace(rune(ch)) || ch == '"' {
				break
			}
			s.pos++
		}
		if !named {
			value.WriteString(s.input[start:s.pos])
		}
	}

	// Scan the (rest of the) value until unquoted whitespace.
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		if unicode.IsSpace(rune(ch)) {
			break
		}
		if ch == '"' {
			if err := s.scanQuoted(&value); err != nil {
				return nil, err
			}
			continue
		}
		value.WriteByte(ch)
		s.pos++
	}

	return &macro.Param{Key: key, Value: value.String(), Named: named}, nil
}

func (s *scanner) scanQuoted(value *strings.Builder) error {
	s.pos++ // opening quote
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		if ch == '"' {
			if s.pos+1 < len(s.input) && s.input[s.pos+1] == '"' {
				value.WriteByte('"')
				s.pos += 2
				continue
			}
			s.pos++ // closing quote
			return nil
		}
		value.WriteByte(ch)
		s.pos++
	}
	return &Error{Line: s.line, Msg: "unterminated quoted value"}
}

// isParamKey reports whether the upper-cased candidate matches the
// parameter key shape [A-Z_][A-Z0-9_]*.
func isParamKey(candidate string) bool {
	if candidate == "" {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		ch := candidate[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch == '_':
		case ch >= '0' && ch <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
