package engine

import (
	"context"
	"strings"
	"time"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
	"github.com/chapelsoftware/go-imacros/internal/vars"
)

func (e *Executor) registerBuiltins() {
	e.RegisterHandler("VERSION", handleVersion)
	e.RegisterHandler("SET", handleSet)
	e.RegisterHandler("ADD", handleAdd)
	e.RegisterHandler("WAIT", handleWait)
	e.RegisterHandler("PAUSE", handlePause)
	e.RegisterHandler("PROMPT", handlePrompt)
	e.RegisterHandler("URL", handleURL)
	e.RegisterHandler("TAG", handleTag)
	e.RegisterHandler("BACK", handleBack)
	e.RegisterHandler("REFRESH", handleRefresh)
	e.RegisterHandler("FRAME", handleFrame)
	e.RegisterHandler("TAB", handleTab)
	e.RegisterHandler("CLEAR", handleClear)
	e.RegisterHandler("SAVEAS", handleSaveAs)
	e.RegisterHandler("PRINT", handlePrint)
	e.RegisterHandler("ONPRINT", handleOnPrint)
	e.RegisterHandler("ONDIALOG", handleOnDialog)
	e.RegisterHandler("ONLOGIN", handleOnLogin)
	e.RegisterHandler("ONDOWNLOAD", handleOnDownload)
	e.RegisterHandler("WINCLICK", handleWinClick)
}

// handleVersion records version info into variables. It never fails:
// macros carry VERSION lines from whatever build recorded them.
func handleVersion(_ context.Context, c *Context) errcode.Result {
	build := c.exec.version
	if v, ok := c.Param("BUILD"); ok {
		build = v
	}
	_ = c.SetVariable("VERSIONBUILD", build)
	if rec, ok := c.Param("RECORDER"); ok {
		_ = c.SetVariable("RECORDER", rec)
	}
	return errcode.Okay()
}

// handleSet implements SET NAME VALUE...: the first positional is the
// variable name, the rest join with spaces. Expansion applies to the
// value before the store write.
func handleSet(_ context.Context, c *Context) errcode.Result {
	args := c.Command().Positionals()
	if len(args) == 0 {
		return errcode.Fail(errcode.MissingParameter, "SET: missing variable name")
	}
	name := args[0]
	value := c.Expand(strings.Join(args[1:], " "))

	if res := setVariableResult(c, name, value); !res.Success {
		return res
	}

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "!DATASOURCE", "!DATASOURCE_LINE", "!FOLDER_DATASOURCE":
		if err := c.exec.reloadDatasource(); err != nil {
			return errcode.Failf(errcode.InvalidParameter, "SET %s: %v", name, err)
		}
	}
	return errcode.Okay()
}

// handleAdd implements the legacy ADD: numeric addition when both sides
// are numeric, string append otherwise. ADD !EXTRACT appends to the
// extract buffer.
func handleAdd(_ context.Context, c *Context) errcode.Result {
	args := c.Command().Positionals()
	if len(args) < 2 {
		return errcode.Fail(errcode.MissingParameter, "ADD: need variable name and value")
	}
	name := strings.ToUpper(strings.TrimSpace(args[0]))
	value := c.Expand(strings.Join(args[1:], " "))

	if name == "!EXTRACT" {
		c.AddExtract(value)
		return errcode.Okay()
	}

	current, exists := c.Store().Get(name)
	if !exists {
		return setVariableResult(c, name, value)
	}
	if cur, ok := vars.ParseNumber(current.String()); ok {
		if add, ok := vars.ParseNumber(value); ok {
			return setVariableResult(c, name, cur+add)
		}
	}
	return setVariableResult(c, name, current.String()+value)
}

// handleWait sleeps for SECONDS, clamped to !TIMEOUT_STEP seconds with a
// 10 ms floor.
func handleWait(ctx context.Context, c *Context) errcode.Result {
	raw, res := c.RequiredParam("SECONDS")
	if res != nil {
		return *res
	}
	secs, ok := vars.ParseNumber(c.Expand(raw))
	if !ok || secs < 0 {
		return errcode.Failf(errcode.InvalidParameter, "WAIT: invalid SECONDS value %q", raw)
	}

	if step := c.Store().Number("!TIMEOUT_STEP", 6); secs > step {
		secs = step
	}
	delay := time.Duration(secs * float64(time.Second))
	if delay < 10*time.Millisecond {
		delay = 10 * time.Millisecond
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return errcode.Okay()
	case <-ctx.Done():
		return errcode.Fail(errcode.UserAbort, "WAIT interrupted")
	}
}

// handlePause shows the flow UI's pause dialog. Operator cancellation is
// USER_ABORT and terminates the macro regardless of !ERRORIGNORE.
func handlePause(ctx context.Context, c *Context) errcode.Result {
	message := "Macro paused"
	if args := c.Command().Positionals(); len(args) > 0 {
		message = c.Expand(strings.Join(args, " "))
	}

	ui := bridge.FlowUI()
	if ui == nil {
		return errcode.Okay()
	}
	if err := ui.ShowPause(ctx, message); err != nil {
		return errcode.Fail(errcode.UserAbort, "macro aborted at PAUSE")
	}
	return errcode.Okay()
}

// handlePrompt implements both the named and the positional form:
// PROMPT MESSAGE [VAR=!Name] [DEFAULT=...] or PROMPT msg varname default.
// Cancelling the prompt succeeds without writing the variable.
func handlePrompt(ctx context.Context, c *Context) errcode.Result {
	args := c.Command().Positionals()

	message, hasMessage := c.Param("MESSAGE")
	if !hasMessage && len(args) > 0 {
		message, hasMessage = args[0], true
		args = args[1:]
	}
	if !hasMessage {
		return errcode.Fail(errcode.MissingParameter, "PROMPT: missing message")
	}
	message = c.Expand(message)

	varName, hasVar := c.Param("VAR")
	if !hasVar && len(args) > 0 {
		varName, hasVar = args[0], true
		args = args[1:]
	}
	defValue, hasDef := c.Param("DEFAULT")
	if !hasDef && len(args) > 0 {
		defValue = args[0]
	}
	defValue = c.Expand(defValue)

	ui := bridge.FlowUI()
	if ui == nil {
		return errcode.Okay()
	}

	if !hasVar {
		if err := ui.ShowAlert(ctx, message); err != nil {
			return errcode.Fail(errcode.ScriptError, err.Error())
		}
		return errcode.Okay()
	}

	answer, err := ui.ShowPrompt(ctx, message, defValue)
	if err != nil {
		// Rejection is cancellation, not an error.
		return errcode.Okay()
	}
	return setVariableResult(c, varName, answer)
}
