package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

// handleWinClick asks the OS-level service for a synthetic click at
// X/Y. CENTER is accepted as an alias for MIDDLE.
func handleWinClick(ctx context.Context, c *Context) errcode.Result {
	x, res := requiredCoord(c, "X")
	if res != nil {
		return *res
	}
	y, res := requiredCoord(c, "Y")
	if res != nil {
		return *res
	}

	rawButton, _ := c.Param("BUTTON")
	button, ok := bridge.ParseMouseButton(rawButton)
	if !ok {
		return errcode.Failf(errcode.InvalidParameter, "WINCLICK: invalid BUTTON value %q", rawButton)
	}

	w := bridge.WinClickBridge()
	if w == nil {
		return errcode.Okay()
	}
	resp, err := w.Click(ctx, bridge.NewWinClickMessage(x, y, button))
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "WINCLICK: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.ScriptError, "WINCLICK: %s", resp.Error)
	}
	return errcode.Okay()
}

func requiredCoord(c *Context, key string) (int, *errcode.Result) {
	raw, res := c.RequiredParam(key)
	if res != nil {
		return 0, res
	}
	n, err := strconv.Atoi(strings.TrimSpace(c.Expand(raw)))
	if err != nil || n < 0 {
		fail := errcode.Failf(errcode.InvalidParameter,
			"WINCLICK: invalid %s value %q", key, raw)
		return 0, &fail
	}
	return n, nil
}

// handlePrint sends the page to the default printer.
func handlePrint(ctx context.Context, _ *Context) errcode.Result {
	p := bridge.PrintBridge()
	if p == nil {
		return errcode.Okay()
	}
	resp, err := p.SendMessage(ctx, bridge.NewPrintMessage("print"))
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "PRINT: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.ScriptError, "PRINT: %s", resp.Error)
	}
	return errcode.Okay()
}

// handleOnPrint selects the printer used by subsequent PRINT commands.
func handleOnPrint(ctx context.Context, c *Context) errcode.Result {
	printer, res := c.RequiredParam("PRINTER")
	if res != nil {
		return *res
	}

	p := bridge.PrintBridge()
	if p == nil {
		return errcode.Okay()
	}
	msg := bridge.NewPrintMessage("setPrintOptions")
	msg.Printer = c.Expand(printer)
	resp, err := p.SendMessage(ctx, msg)
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "ONPRINT: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.ScriptError, "ONPRINT: %s", resp.Error)
	}
	return errcode.Okay()
}
