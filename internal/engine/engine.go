// Package engine implements the macro executor: a single-threaded
// cooperative interpreter that parses macro source, dispatches each
// command through the handler registry, and orchestrates the bridges.
// One executor owns one variable store and one handler table; only one
// macro executes at a time.
package engine

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/chapelsoftware/go-imacros/internal/download"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
	"github.com/chapelsoftware/go-imacros/internal/macro"
	"github.com/chapelsoftware/go-imacros/internal/parser"
	"github.com/chapelsoftware/go-imacros/internal/vars"
)

// State is the executor lifecycle state.
type State int32

// Executor states.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateRunning
	StatePaused
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Handler implements one command's semantics. Handlers return a Result
// instead of raising; the executor converts a recovered panic into
// SCRIPT_ERROR.
type Handler func(ctx context.Context, c *Context) errcode.Result

// ExecutionResult is the outcome of one macro run, with a snapshot of
// the variable store at termination.
type ExecutionResult struct {
	Success   bool
	Code      int
	Message   string
	Line      int
	Variables map[string]string
}

func resultFrom(r errcode.Result, snapshot map[string]string) ExecutionResult {
	return ExecutionResult{
		Success:   r.Success,
		Code:      r.Code,
		Message:   r.Message,
		Line:      r.Line,
		Variables: snapshot,
	}
}

// Executor is the top-level macro state machine.
type Executor struct {
	mu       sync.Mutex
	handlers map[string]Handler
	store    *vars.Store
	commands []macro.Command
	name     string

	state   atomic.Int32
	stopped atomic.Bool

	// resumeCh is non-nil while paused; Resume closes it.
	resumeCh chan struct{}

	// pending is the asynchronous fault slot, read between commands.
	pending *errcode.Result

	extracts []string
	ds       *datasource

	// downloadWait is set by ONDOWNLOAD with WAIT=YES and cleared by
	// NotifyDownloadStarted; at macro end the loop lingers on it.
	downloadWait atomic.Bool
	downloadCh   chan struct{}

	timeout        *download.TimeoutManager
	logger         *zap.Logger
	lenientUnknown bool
	version        string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger installs a structured logger. The default is a no-op.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithLenientUnknown restores the legacy skip-with-warning policy for
// unknown commands instead of failing the macro.
func WithLenientUnknown() Option {
	return func(e *Executor) { e.lenientUnknown = true }
}

// WithVersion sets the version string the VERSION command reports.
func WithVersion(v string) Option {
	return func(e *Executor) { e.version = v }
}

// New creates an executor with the built-in handler set registered.
func New(opts ...Option) *Executor {
	e := &Executor{
		handlers:   make(map[string]Handler),
		store:      vars.NewStore(),
		downloadCh: make(chan struct{}, 1),
		logger:     zap.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.timeout = download.NewTimeoutManager(func() {
		e.SetPendingError(errcode.Fail(errcode.DownloadTimeout,
			"no download observed within the timeout window"))
		e.signalDownload()
	})
	e.registerBuiltins()
	e.state.Store(int32(StateIdle))
	return e
}

// RegisterHandler installs or replaces the handler for a command kind.
// This is the sanctioned extension point; tests use it to stub commands.
func (e *Executor) RegisterHandler(kind string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[strings.ToUpper(kind)] = h
}

func (e *Executor) handler(kind string) (Handler, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handlers[kind]
	return h, ok
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Store exposes the variable store, primarily for hosts seeding
// variables before execution.
func (e *Executor) Store() *vars.Store {
	return e.store
}

// Extracts returns a copy of the extract buffer.
func (e *Executor) Extracts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.extracts...)
}

func (e *Executor) addExtract(v string) {
	e.mu.Lock()
	e.extracts = append(e.extracts, v)
	joined := strings.Join(e.extracts, "[EXTRACT]")
	e.mu.Unlock()
	// !EXTRACT is the derived string view over the buffer.
	_ = e.store.SetSystem("!EXTRACT", joined)
}

// SetPendingError injects an asynchronous fault. The executor adopts it
// at the next loop iteration and terminates.
func (e *Executor) SetPendingError(r errcode.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		e.pending = &r
	}
}

func (e *Executor) takePending() *errcode.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending
	e.pending = nil
	return p
}

// NotifyDownloadStarted tells the executor the awaited download began:
// the timeout window is disarmed and a lingering macro end unblocks.
func (e *Executor) NotifyDownloadStarted() {
	e.timeout.NotifyStarted()
	e.downloadWait.Store(false)
	e.signalDownload()
}

func (e *Executor) signalDownload() {
	select {
	case e.downloadCh <- struct{}{}:
	default:
	}
}

// Pause asks the loop to hold before the next command.
func (e *Executor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resumeCh == nil {
		e.resumeCh = make(chan struct{})
		if e.State() == StateRunning {
			e.state.Store(int32(StatePaused))
		}
	}
}

// Resume releases a paused loop.
func (e *Executor) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resumeCh != nil {
		close(e.resumeCh)
		e.resumeCh = nil
		if e.State() == StatePaused {
			e.state.Store(int32(StateRunning))
		}
	}
}

// Stop aborts the run after the current command or suspension returns.
func (e *Executor) Stop() {
	e.stopped.Store(true)
	e.Resume()
	e.signalDownload()
}

func (e *Executor) waitIfPaused(ctx context.Context) {
	e.mu.Lock()
	ch := e.resumeCh
	e.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// LoadMacro parses the source and arms the executor. User variables and
// the extract buffer reset; registered handlers persist.
func (e *Executor) LoadMacro(source, name string) errcode.Result {
	e.state.Store(int32(StateLoading))

	cmds, err := parser.Parse(source)
	if err != nil {
		e.state.Store(int32(StateError))
		res := errcode.Fail(errcode.ScriptError, err.Error())
		if perr, ok := err.(*parser.Error); ok {
			res.Line = perr.Line
		}
		return res
	}

	e.mu.Lock()
	e.commands = cmds
	e.name = name
	e.extracts = nil
	e.pending = nil
	e.ds = nil
	e.mu.Unlock()

	e.store.Reset()
	e.stopped.Store(false)
	e.downloadWait.Store(false)
	e.state.Store(int32(StateReady))
	e.logger.Debug("macro loaded",
		zap.String("macro", name), zap.Int("commands", len(cmds)))
	return errcode.Okay()
}

// Execute runs the loaded macro to completion. The loop yields between
// commands so pause, stop and pending errors take effect promptly.
func (e *Executor) Execute(ctx context.Context) ExecutionResult {
	if e.State() != StateReady {
		return resultFrom(errcode.Failf(errcode.ScriptError,
			"no macro loaded (state %s)", e.State()), e.store.Snapshot())
	}
	e.state.Store(int32(StateRunning))
	defer e.timeout.Cancel()

	last := errcode.Okay()
	for i := range e.commands {
		cmd := &e.commands[i]

		e.yield()
		e.waitIfPaused(ctx)

		if err := ctx.Err(); err != nil {
			return e.finish(errcode.Fail(errcode.UserAbort, "execution cancelled"))
		}
		if e.stopped.Load() {
			return e.finish(e.stopResult(last))
		}
		if p := e.takePending(); p != nil {
			return e.finish(*p)
		}

		res := e.runCommand(ctx, cmd)
		if !res.Success && res.Line == 0 {
			res.Line = cmd.Line
		}

		if res.Success {
			last = res
			continue
		}
		if res.Is(errcode.UserAbort) {
			return e.finish(res)
		}
		if e.errorIgnore() {
			e.logger.Warn("command failed, continuing",
				zap.String("command", cmd.Kind),
				zap.Int("line", cmd.Line),
				zap.Int("code", res.Code),
				zap.String("error", res.Message))
			last = res
			continue
		}
		return e.finish(res)
	}

	// A WAIT=YES download still in flight keeps the macro alive until
	// the notification arrives or the timeout manager injects -952.
	if final := e.lingerForDownload(ctx); final != nil {
		return e.finish(*final)
	}
	if p := e.takePending(); p != nil {
		return e.finish(*p)
	}
	return e.finish(last)
}

func (e *Executor) lingerForDownload(ctx context.Context) *errcode.Result {
	for e.downloadWait.Load() && !e.stopped.Load() {
		select {
		case <-e.downloadCh:
		case <-ctx.Done():
			r := errcode.Fail(errcode.UserAbort, "execution cancelled")
			return &r
		}
		if p := e.takePending(); p != nil {
			return p
		}
	}
	return nil
}

func (e *Executor) stopResult(last errcode.Result) errcode.Result {
	if last.Success {
		return errcode.Fail(errcode.UserAbort, "stopped by operator")
	}
	return last
}

func (e *Executor) finish(res errcode.Result) ExecutionResult {
	e.timeout.Cancel()
	if res.Success {
		e.state.Store(int32(StateDone))
	} else {
		e.state.Store(int32(StateError))
	}
	e.logger.Info("macro finished",
		zap.String("macro", e.name),
		zap.Bool("success", res.Success),
		zap.Int("code", res.Code))
	return resultFrom(res, e.store.Snapshot())
}

// yield hands control to the host scheduler between commands.
func (e *Executor) yield() {
	runtime.Gosched()
}

func (e *Executor) runCommand(ctx context.Context, cmd *macro.Command) (res errcode.Result) {
	// Parse-time-unknown kinds still resolve against the registry, so
	// handlers registered after construction extend the language.
	h, ok := e.handler(commandWord(cmd))
	if !ok {
		return e.unknownCommand(cmd)
	}

	defer func() {
		if r := recover(); r != nil {
			res = errcode.Failf(errcode.ScriptError, "%s: handler panic: %v", cmd.Kind, r)
		}
	}()

	c := &Context{exec: e, cmd: cmd}
	e.logger.Debug("executing", zap.String("command", cmd.Kind), zap.Int("line", cmd.Line))
	return h(ctx, c)
}

// commandWord is the dispatch key: the canonical kind, or for unknown
// commands the upper-cased first word of the raw line.
func commandWord(cmd *macro.Command) string {
	if cmd.Kind != macro.KindUnknown {
		return cmd.Kind
	}
	if fields := strings.Fields(cmd.Raw); len(fields) > 0 {
		return strings.ToUpper(fields[0])
	}
	return cmd.Kind
}

func (e *Executor) unknownCommand(cmd *macro.Command) errcode.Result {
	word := commandWord(cmd)
	if e.lenientUnknown {
		e.logger.Warn("skipping unknown command",
			zap.String("command", word), zap.Int("line", cmd.Line))
		return errcode.Okay()
	}
	return errcode.Failf(errcode.InvalidParameter, "unknown command: %s", word)
}

func (e *Executor) errorIgnore() bool {
	return strings.EqualFold(e.store.Text("!ERRORIGNORE"), "YES")
}
