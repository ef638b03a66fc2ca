package vars

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors returned by Store mutations. The engine maps them onto the
// INVALID_PARAMETER taxonomy entry.
var (
	ErrReadonly      = errors.New("variable is read-only")
	ErrUnknownSystem = errors.New("unsupported system variable")
	ErrType          = errors.New("value does not match the variable type")
	ErrDeleteSystem  = errors.New("system variables cannot be deleted")
)

type sysEntry struct {
	typ      string
	readonly bool
	def      Value
}

// systemTable is the fixed set of !-prefixed variable names. !NOW and the
// !COLn family are handled separately: !NOW is computed on read, columns
// are populated by the datasource loader.
var systemTable = map[string]sysEntry{
	"!LOOP":               {"number", true, NumberValue{1}},
	"!DATASOURCE":         {"string", false, StringValue{""}},
	"!DATASOURCE_LINE":    {"number", false, NumberValue{1}},
	"!DATASOURCE_COLUMNS": {"number", true, NumberValue{0}},
	"!EXTRACT":            {"string", true, StringValue{""}},
	"!TIMEOUT_STEP":       {"number", false, NumberValue{6}},
	"!TIMEOUT_PAGE":       {"number", false, NumberValue{60}},
	"!TIMEOUT_TAG":        {"number", false, NumberValue{10}},
	"!ERRORIGNORE":        {"string", false, StringValue{"NO"}},
	"!REPLAYSPEED":        {"string", false, StringValue{"MEDIUM"}},
	"!FOLDER_DATASOURCE":  {"string", false, StringValue{""}},
	"!FOLDER_DOWNLOAD":    {"string", false, StringValue{""}},
	"!ENCRYPTIONKEY":      {"string", false, StringValue{""}},
	"!VAR0":               {"string", false, StringValue{""}},
	"!VAR1":               {"string", false, StringValue{""}},
	"!VAR2":               {"string", false, StringValue{""}},
	"!VAR3":               {"string", false, StringValue{""}},
	"!VAR4":               {"string", false, StringValue{""}},
	"!VAR5":               {"string", false, StringValue{""}},
	"!VAR6":               {"string", false, StringValue{""}},
	"!VAR7":               {"string", false, StringValue{""}},
	"!VAR8":               {"string", false, StringValue{""}},
	"!VAR9":               {"string", false, StringValue{""}},
}

// Store maps canonical (upper-case) variable names to values. Lookup is
// case-insensitive. One executor owns one store; it is not safe for
// concurrent use.
type Store struct {
	values map[string]Value
	now    func() time.Time
}

// NewStore returns a store seeded with the system defaults.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.Reset()
	return s
}

// Reset restores every system variable to its default and drops all user
// variables and datasource columns.
func (s *Store) Reset() {
	s.values = make(map[string]Value, len(systemTable))
	for name, entry := range systemTable {
		s.values[name] = entry.def
	}
}

func canon(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func isColumn(name string) bool {
	if !strings.HasPrefix(name, "!COL") || len(name) == len("!COL") {
		return false
	}
	for i := len("!COL"); i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

// Get returns the value of the variable, if present. !NOW is computed on
// every read.
func (s *Store) Get(name string) (Value, bool) {
	name = canon(name)
	if name == "!NOW" {
		return StringValue{s.now().Format(time.RFC3339)}, true
	}
	v, ok := s.values[name]
	return v, ok
}

// Exists reports whether the variable is defined.
func (s *Store) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set stores a value under the name. System names must appear in the
// fixed table and are coerced to their declared type; readonly entries
// reject the write. User names are created on first write with an
// inferred type.
func (s *Store) Set(name string, value any) error {
	name = canon(name)
	if strings.HasPrefix(name, "!") {
		if name == "!NOW" || isColumn(name) {
			return fmt.Errorf("%s: %w", name, ErrReadonly)
		}
		entry, ok := systemTable[name]
		if !ok {
			return fmt.Errorf("%s: %w", name, ErrUnknownSystem)
		}
		if entry.readonly {
			return fmt.Errorf("%s: %w", name, ErrReadonly)
		}
		coerced, err := coerce(name, value, entry.typ)
		if err != nil {
			return err
		}
		s.values[name] = coerced
		return nil
	}
	s.values[name] = FromGo(value)
	return nil
}

// SetSystem bypasses the readonly flag. It is how the engine itself
// maintains derived state: !EXTRACT, the !COLn columns and
// !DATASOURCE_COLUMNS. Coercion still applies for table entries.
func (s *Store) SetSystem(name string, value any) error {
	name = canon(name)
	if entry, ok := systemTable[name]; ok {
		coerced, err := coerce(name, value, entry.typ)
		if err != nil {
			return err
		}
		s.values[name] = coerced
		return nil
	}
	s.values[name] = FromGo(value)
	return nil
}

func coerce(name string, value any, typ string) (Value, error) {
	v := FromGo(value)
	switch typ {
	case "number":
		if n, ok := v.(NumberValue); ok {
			return n, nil
		}
		n, ok := ParseNumber(v.String())
		if !ok {
			return nil, fmt.Errorf("%s=%q: %w", name, v.String(), ErrType)
		}
		return NumberValue{n}, nil
	case "boolean":
		if b, ok := v.(BoolValue); ok {
			return b, nil
		}
		switch strings.ToUpper(v.String()) {
		case "YES", "TRUE":
			return BoolValue{true}, nil
		case "NO", "FALSE":
			return BoolValue{false}, nil
		}
		return nil, fmt.Errorf("%s=%q: %w", name, v.String(), ErrType)
	case "array":
		if a, ok := v.(ArrayValue); ok {
			return a, nil
		}
		return ArrayValue{Items: []string{v.String()}}, nil
	default:
		return StringValue{v.String()}, nil
	}
}

// Delete removes a user variable. System names are rejected.
func (s *Store) Delete(name string) error {
	name = canon(name)
	if strings.HasPrefix(name, "!") {
		return fmt.Errorf("%s: %w", name, ErrDeleteSystem)
	}
	delete(s.values, name)
	return nil
}

// Expand replaces every {{name}} occurrence with the variable's string
// form. The scan is a single left-to-right pass: replacement output is
// not re-scanned, and unknown names stay literal.
func (s *Store) Expand(text string) string {
	var sb strings.Builder
	for {
		open := strings.Index(text, "{{")
		if open < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		inner := text[open+2 : open+2+end]
		sb.WriteString(text[:open])
		if v, ok := s.Get(strings.TrimSpace(inner)); ok {
			sb.WriteString(v.String())
		} else {
			sb.WriteString(text[open : open+2+end+2])
		}
		text = text[open+2+end+2:]
	}
}

// Text returns the stringified value of the variable, or "" if unset.
func (s *Store) Text(name string) string {
	if v, ok := s.Get(name); ok {
		return v.String()
	}
	return ""
}

// Number returns the variable as a number, or def when unset or not
// numeric.
func (s *Store) Number(name string, def float64) float64 {
	v, ok := s.Get(name)
	if !ok {
		return def
	}
	if n, ok := v.(NumberValue); ok {
		return n.Value
	}
	if n, ok := ParseNumber(v.String()); ok {
		return n
	}
	return def
}

// Snapshot returns a stringified copy of every stored variable.
func (s *Store) Snapshot() map[string]string {
	snap := make(map[string]string, len(s.values))
	for name, v := range s.values {
		snap[name] = v.String()
	}
	return snap
}
