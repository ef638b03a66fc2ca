// Package imacros is the public embedding API for the macro engine. It
// wraps the internal executor behind a stable surface: load a macro,
// execute it, inspect the result.
//
// Bridges to the host environment (page driver, dialog interceptor,
// download subsystem, flow-control UI) are installed through the
// functions re-exported here; without them the engine runs in test mode
// and commands needing a bridge succeed without side effects.
package imacros

import (
	"context"

	"go.uber.org/zap"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/engine"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

// Result is the outcome of a macro run.
type Result = engine.ExecutionResult

// CommandResult is the per-command result type custom handlers return.
type CommandResult = errcode.Result

// Context is the per-command view custom handlers receive.
type Context = engine.Context

// Handler implements a command; install it with RegisterHandler.
type Handler = engine.Handler

// Bridge interfaces, re-exported for host implementations.
type (
	Dialog        = bridge.Dialog
	Download      = bridge.Download
	Print         = bridge.Print
	WinClick      = bridge.WinClick
	PageDriver    = bridge.PageDriver
	FlowControlUI = bridge.FlowControlUI
)

// Bridge installation, re-exported. These form process-wide
// configuration; hosts set them once at startup.
var (
	SetDialogBridge   = bridge.SetDialogBridge
	SetDownloadBridge = bridge.SetDownloadBridge
	SetPrintBridge    = bridge.SetPrintBridge
	SetWinClickBridge = bridge.SetWinClickBridge
	SetFlowControlUI  = bridge.SetFlowControlUI
	SetPageDriver     = bridge.SetPageDriver
	ResetBridges      = bridge.ResetBridges
)

// Engine plays iim macros.
type Engine struct {
	exec *engine.Executor
}

// Option configures an Engine.
type Option = engine.Option

// WithLogger installs a structured logger.
func WithLogger(l *zap.Logger) Option { return engine.WithLogger(l) }

// WithLenientUnknown makes unknown commands log-and-skip instead of
// failing the macro.
func WithLenientUnknown() Option { return engine.WithLenientUnknown() }

// WithVersion sets the version the VERSION command reports.
func WithVersion(v string) Option { return engine.WithVersion(v) }

// New creates an engine with the built-in command set.
func New(opts ...Option) *Engine {
	return &Engine{exec: engine.New(opts...)}
}

// LoadMacro parses macro source and arms the engine. A parse failure is
// returned as a Result carrying the offending line.
func (e *Engine) LoadMacro(source, name string) Result {
	res := e.exec.LoadMacro(source, name)
	return Result{Success: res.Success, Code: res.Code, Message: res.Message, Line: res.Line}
}

// Execute runs the loaded macro to completion.
func (e *Engine) Execute(ctx context.Context) Result {
	return e.exec.Execute(ctx)
}

// RegisterHandler installs or replaces a command handler.
func (e *Engine) RegisterHandler(kind string, h Handler) {
	e.exec.RegisterHandler(kind, h)
}

// SetVariable seeds a variable before execution, with the store's usual
// validation.
func (e *Engine) SetVariable(name string, value any) error {
	return e.exec.Store().Set(name, value)
}

// Variable reads a variable's string form.
func (e *Engine) Variable(name string) (string, bool) {
	v, ok := e.exec.Store().Get(name)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Extracts returns the extract buffer of the last run.
func (e *Engine) Extracts() []string {
	return e.exec.Extracts()
}

// Pause holds the loop before the next command.
func (e *Engine) Pause() { e.exec.Pause() }

// Resume releases a paused loop.
func (e *Engine) Resume() { e.exec.Resume() }

// Stop aborts the run at the next check point.
func (e *Engine) Stop() { e.exec.Stop() }

// NotifyDownloadStarted reports that the awaited download began.
func (e *Engine) NotifyDownloadStarted() { e.exec.NotifyDownloadStarted() }
