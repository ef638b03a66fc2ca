// Package vars implements the macro variable namespace: typed values, the
// system variable table, case-insensitive lookup, and {{name}} template
// expansion.
package vars

import (
	"fmt"
	"strconv"
	"strings"
)

// Value represents a variable value. All values must implement this
// interface; handlers work with the stringified form, the store keeps the
// typed one.
type Value interface {
	// Type returns the type name of the value: "string", "number",
	// "boolean" or "array".
	Type() string
	// String returns the string representation used by expansion.
	String() string
}

// StringValue represents a string variable.
type StringValue struct {
	Value string
}

// Type returns "string".
func (s StringValue) Type() string { return "string" }

// String returns the string value itself.
func (s StringValue) String() string { return s.Value }

// NumberValue represents a numeric variable. The dialect has a single
// number type; integers stringify without a fraction part.
type NumberValue struct {
	Value float64
}

// Type returns "number".
func (n NumberValue) Type() string { return "number" }

// String formats the number without locale formatting or exponents.
func (n NumberValue) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// BoolValue represents a boolean variable.
type BoolValue struct {
	Value bool
}

// Type returns "boolean".
func (b BoolValue) Type() string { return "boolean" }

// String returns "true" or "false".
func (b BoolValue) String() string {
	return strconv.FormatBool(b.Value)
}

// ArrayValue represents an ordered sequence of strings.
type ArrayValue struct {
	Items []string
}

// Type returns "array".
func (a ArrayValue) Type() string { return "array" }

// String joins the items with commas.
func (a ArrayValue) String() string {
	return strings.Join(a.Items, ",")
}

// FromGo converts a native Go value into a Value. Unhandled types fall
// back to their string form.
func FromGo(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return StringValue{x}
	case bool:
		return BoolValue{x}
	case int:
		return NumberValue{float64(x)}
	case int64:
		return NumberValue{float64(x)}
	case float64:
		return NumberValue{x}
	case []string:
		return ArrayValue{append([]string(nil), x...)}
	default:
		return StringValue{stringify(v)}
	}
}

func stringify(v any) string {
	return fmt.Sprint(v)
}

// ParseNumber accepts decimal integers and decimal fractions, the only
// numeric forms the dialect admits. Hex, exponent and locale forms are
// rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	body := s
	if body[0] == '-' || body[0] == '+' {
		body = body[1:]
	}
	if body == "" {
		return 0, false
	}
	dots := 0
	for _, ch := range body {
		switch {
		case ch >= '0' && ch <= '9':
		case ch == '.':
			dots++
			if dots > 1 {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if body == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
