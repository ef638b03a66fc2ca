// Package bridge defines the engine's boundary to the side-effecting
// world: the dialog interceptor, the download subsystem, the PDF print
// service, the OS-level clicker, the flow-control UI and the page driver.
// Each collaborator is one small interface reachable through typed
// messages; the engine never sees their internal state.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCancelled is returned by FlowControlUI operations when the operator
// dismisses the dialog. It is an in-band control signal, not a failure;
// handlers translate it into the policy-appropriate result.
var ErrCancelled = errors.New("cancelled by operator")

// Response is the acknowledgement every message bridge returns.
type Response struct {
	Success bool
	Error   string
}

// Dialog forwards dialog interceptor configuration into the page.
type Dialog interface {
	SendMessage(ctx context.Context, msg DialogMessage) (Response, error)
}

// Download speaks to the file download subsystem.
type Download interface {
	SendMessage(ctx context.Context, msg DownloadMessage) (Response, error)
}

// Print speaks to the PDF print service.
type Print interface {
	SendMessage(ctx context.Context, msg PrintMessage) (Response, error)
}

// WinClick speaks to the OS-level click service.
type WinClick interface {
	Click(ctx context.Context, msg WinClickMessage) (Response, error)
}

// FlowControlUI is the operator-facing pause/prompt/alert surface.
// Returning ErrCancelled from any call means the operator cancelled.
type FlowControlUI interface {
	ShowPause(ctx context.Context, message string) error
	ShowPrompt(ctx context.Context, message, defaultValue string) (string, error)
	ShowAlert(ctx context.Context, message string) error
}

// TagRequest selects an element and optionally extracts from it.
type TagRequest struct {
	Pos     int
	Type    string
	Form    string
	Attrs   string
	Content string
	Extract string
	Timeout time.Duration
}

// TagResult reports whether the selector matched and what was extracted.
type TagResult struct {
	Found     bool
	Extracted string
}

// FrameRef selects a frame by index or by name; Name wins when set.
type FrameRef struct {
	Index int
	Name  string
}

// PageDriver drives the live browser page. The engine awaits each call;
// drivers honour ctx for cancellation.
type PageDriver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Tag(ctx context.Context, req TagRequest) (TagResult, error)
	Back(ctx context.Context) error
	Refresh(ctx context.Context) error
	SelectFrame(ctx context.Context, ref FrameRef) error
	SelectTab(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

// The process-wide endpoint registry. Endpoints are configuration, not
// state: hosts install them once at startup, tests reset them between
// cases. A nil endpoint puts the engine in test mode for that concern.
var (
	mu       sync.RWMutex
	dialog   Dialog
	download Download
	printer  Print
	winclick WinClick
	flowUI   FlowControlUI
	page     PageDriver
)

// SetDialogBridge installs the dialog endpoint.
func SetDialogBridge(d Dialog) { mu.Lock(); dialog = d; mu.Unlock() }

// DialogBridge returns the installed dialog endpoint, or nil.
func DialogBridge() Dialog { mu.RLock(); defer mu.RUnlock(); return dialog }

// SetDownloadBridge installs the download endpoint.
func SetDownloadBridge(d Download) { mu.Lock(); download = d; mu.Unlock() }

// DownloadBridge returns the installed download endpoint, or nil.
func DownloadBridge() Download { mu.RLock(); defer mu.RUnlock(); return download }

// SetPrintBridge installs the print endpoint.
func SetPrintBridge(p Print) { mu.Lock(); printer = p; mu.Unlock() }

// PrintBridge returns the installed print endpoint, or nil.
func PrintBridge() Print { mu.RLock(); defer mu.RUnlock(); return printer }

// SetWinClickBridge installs the click endpoint.
func SetWinClickBridge(w WinClick) { mu.Lock(); winclick = w; mu.Unlock() }

// WinClickBridge returns the installed click endpoint, or nil.
func WinClickBridge() WinClick { mu.RLock(); defer mu.RUnlock(); return winclick }

// SetFlowControlUI installs the operator UI endpoint.
func SetFlowControlUI(f FlowControlUI) { mu.Lock(); flowUI = f; mu.Unlock() }

// FlowUI returns the installed operator UI endpoint, or nil.
func FlowUI() FlowControlUI { mu.RLock(); defer mu.RUnlock(); return flowUI }

// SetPageDriver installs the page driver.
func SetPageDriver(p PageDriver) { mu.Lock(); page = p; mu.Unlock() }

// Page returns the installed page driver, or nil.
func Page() PageDriver { mu.RLock(); defer mu.RUnlock(); return page }

// ResetBridges clears every endpoint. Tests call this between cases.
func ResetBridges() {
	mu.Lock()
	defer mu.Unlock()
	dialog, download, printer, winclick, flowUI, page = nil, nil, nil, nil, nil, nil
}
