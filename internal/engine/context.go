package engine

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/chapelsoftware/go-imacros/internal/errcode"
	"github.com/chapelsoftware/go-imacros/internal/macro"
	"github.com/chapelsoftware/go-imacros/internal/vars"
)

// Context is the per-command view handlers receive: parameter access,
// variable expansion, logging and the extract buffer. It is ephemeral;
// handlers must not retain it past their return.
type Context struct {
	exec *Executor
	cmd  *macro.Command
}

// Command returns the parsed command record.
func (c *Context) Command() *macro.Command {
	return c.cmd
}

// Param returns the raw value of the named parameter, first occurrence,
// case-insensitively.
func (c *Context) Param(key string) (string, bool) {
	return c.cmd.Lookup(key)
}

// ExpandedParam returns the named parameter with variable expansion
// applied.
func (c *Context) ExpandedParam(key string) (string, bool) {
	v, ok := c.cmd.Lookup(key)
	if !ok {
		return "", false
	}
	return c.Expand(v), true
}

// RequiredParam returns the named parameter or a MISSING_PARAMETER
// failure the handler returns as-is.
func (c *Context) RequiredParam(key string) (string, *errcode.Result) {
	v, ok := c.cmd.Lookup(key)
	if !ok {
		res := errcode.Failf(errcode.MissingParameter,
			"%s: missing parameter %s", c.cmd.Kind, strings.ToUpper(key))
		return "", &res
	}
	return v, nil
}

// Expand applies variable expansion to the text.
func (c *Context) Expand(text string) string {
	return c.exec.store.Expand(text)
}

// Variable returns the stringified variable value, if defined.
func (c *Context) Variable(name string) (string, bool) {
	v, ok := c.exec.store.Get(name)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// SetVariable writes a variable through the store's validation.
func (c *Context) SetVariable(name string, value any) error {
	return c.exec.store.Set(name, value)
}

// Store exposes the variable store for handlers needing typed reads.
func (c *Context) Store() *vars.Store {
	return c.exec.store
}

// AddExtract appends a value to the extract buffer and refreshes the
// derived !EXTRACT view.
func (c *Context) AddExtract(value string) {
	c.exec.addExtract(value)
}

// SetPendingError injects an asynchronous fault, adopted by the loop at
// its next iteration.
func (c *Context) SetPendingError(r errcode.Result) {
	c.exec.SetPendingError(r)
}

// Log returns a logger scoped to the executing command.
func (c *Context) Log() *zap.Logger {
	return c.exec.logger.With(
		zap.String("command", c.cmd.Kind),
		zap.Int("line", c.cmd.Line))
}

// setVariableResult maps store errors onto the taxonomy: every rejected
// write is INVALID_PARAMETER.
func setVariableResult(c *Context, name string, value any) errcode.Result {
	err := c.SetVariable(name, value)
	switch {
	case err == nil:
		return errcode.Okay()
	case errors.Is(err, vars.ErrReadonly),
		errors.Is(err, vars.ErrUnknownSystem),
		errors.Is(err, vars.ErrType):
		return errcode.Fail(errcode.InvalidParameter, err.Error())
	default:
		return errcode.Fail(errcode.ScriptError, err.Error())
	}
}
