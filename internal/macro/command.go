// Package macro defines the parsed representation of iim macro source:
// commands, their parameters, and the canonical serialised form. The
// parser produces these records; the engine consumes them.
package macro

import (
	"strings"
)

// KindUnknown is the kind assigned to commands the parser does not
// recognise. The raw source line is preserved so the executor can apply
// its unknown-command policy.
const KindUnknown = "UNKNOWN"

// Param is one command parameter. Parameters keep their source order,
// including duplicates. A named parameter came from a KEY=VALUE token; a
// positional one is a bare token.
type Param struct {
	Key   string // canonical upper-case, empty for positional params
	Value string
	Named bool
}

// Command is one non-empty, non-comment line of a macro.
type Command struct {
	Kind   string  // canonical upper-case command word
	Params []Param // source order, duplicates preserved
	Raw    string  // logical source line (after continuation joining)
	Line   int     // 1-based line number of the first physical line
	Refs   []string
}

// Lookup returns the value of the first parameter with the given key,
// case-insensitively. The second return reports whether it was present.
func (c *Command) Lookup(key string) (string, bool) {
	key = strings.ToUpper(key)
	for _, p := range c.Params {
		if p.Named && p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Positionals returns the values of all positional parameters in order.
func (c *Command) Positionals() []string {
	var vals []string
	for _, p := range c.Params {
		if !p.Named {
			vals = append(vals, p.Value)
		}
	}
	return vals
}

// String renders the command in canonical form. Parsing the result yields
// the same Command again: values containing whitespace, quotes or '=' are
// quoted, with inner quotes doubled.
func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Kind)
	for _, p := range c.Params {
		sb.WriteByte(' ')
		if p.Named {
			sb.WriteString(p.Key)
			sb.WriteByte('=')
		}
		sb.WriteString(quoteIfNeeded(p.Value))
	}
	return sb.String()
}

func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}
	if !strings.ContainsAny(v, " \t\"=") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// ScanRefs collects the names of all {{...}} variable references in the
// value, trimmed and upper-cased. Used for diagnostics.
func ScanRefs(value string) []string {
	var refs []string
	for {
		open := strings.Index(value, "{{")
		if open < 0 {
			return refs
		}
		rest := value[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return refs
		}
		name := strings.ToUpper(strings.TrimSpace(rest[:end]))
		if name != "" {
			refs = append(refs, name)
		}
		value = rest[end+2:]
	}
}

// builtinKinds lists every command word the engine ships a handler for.
// The parser flags anything else as unknown; the executor decides whether
// that is fatal.
var builtinKinds = map[string]bool{
	"VERSION":    true,
	"SET":        true,
	"ADD":        true,
	"WAIT":       true,
	"PAUSE":      true,
	"PROMPT":     true,
	"URL":        true,
	"TAG":        true,
	"BACK":       true,
	"REFRESH":    true,
	"FRAME":      true,
	"TAB":        true,
	"CLEAR":      true,
	"SAVEAS":     true,
	"PRINT":      true,
	"ONPRINT":    true,
	"ONDIALOG":   true,
	"ONLOGIN":    true,
	"ONDOWNLOAD": true,
	"WINCLICK":   true,
}

// KnownKind reports whether the upper-cased word is a built-in command.
func KnownKind(word string) bool {
	return builtinKinds[word]
}
