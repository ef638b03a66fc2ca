// Package bridgetest provides in-memory bridge endpoints for tests. The
// fakes record every message they receive; FakeDialog additionally
// simulates the page-side interceptor queue so tests can drive dialog
// consumption end to end.
package bridgetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
)

// FakeDialog records dialog messages and models the in-page queue.
type FakeDialog struct {
	mu       sync.Mutex
	Messages []bridge.DialogMessage
	Fail     bool // respond with a failed ack
	Err      error

	queue  []bridge.DialogConfig
	active bool
}

// SendMessage implements bridge.Dialog.
func (f *FakeDialog) SendMessage(_ context.Context, msg bridge.DialogMessage) (bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return bridge.Response{}, f.Err
	}
	f.Messages = append(f.Messages, msg)
	if f.Fail {
		return bridge.Response{Success: false, Error: "bridge failure"}, nil
	}

	switch m := msg.(type) {
	case bridge.DialogConfigMessage:
		if !m.Append {
			f.queue = nil
		}
		f.queue = append(f.queue, m.Payload.Config)
		sort.SliceStable(f.queue, func(i, j int) bool {
			return f.queue[i].Pos < f.queue[j].Pos
		})
		f.active = true
	case bridge.DialogResetMessage:
		f.queue = nil
		f.active = false
	}
	return bridge.Response{Success: true}, nil
}

// Intercept simulates a dialog firing inside the page. It consumes the
// front of the queue and returns the event the interceptor would emit:
// OK/YES accept (a confirm returns true, a prompt returns the configured
// content, else the default, else ""); anything else cancels. An empty
// queue yields the unhandled event and the cancel form.
func (f *FakeDialog) Intercept(dialogType, message, defaultValue string) bridge.DialogEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev := bridge.DialogEvent{
		Type:         dialogType,
		Message:      message,
		DefaultValue: defaultValue,
	}
	if len(f.queue) == 0 {
		ev.Unhandled = true
		ev.Response = bridge.DialogResponse{Button: bridge.ButtonCancel}
		return ev
	}

	cfg := f.queue[0]
	f.queue = f.queue[1:]
	ev.Response.Button = cfg.Button
	if cfg.Button.Accepts() && dialogType == "prompt" {
		value := defaultValue
		if cfg.Content != nil {
			value = *cfg.Content
		}
		ev.Response.Value = &value
	}
	return ev
}

// QueueLen reports how many config slots remain.
func (f *FakeDialog) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// FakeDownload records download messages.
type FakeDownload struct {
	mu       sync.Mutex
	Messages []bridge.DownloadMessage
	Fail     bool
	Err      error
}

// SendMessage implements bridge.Download.
func (f *FakeDownload) SendMessage(_ context.Context, msg bridge.DownloadMessage) (bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return bridge.Response{}, f.Err
	}
	f.Messages = append(f.Messages, msg)
	if f.Fail {
		return bridge.Response{Success: false, Error: "download bridge failure"}, nil
	}
	return bridge.Response{Success: true}, nil
}

// Options returns the recorded setDownloadOptions messages.
func (f *FakeDownload) Options() []bridge.SetDownloadOptionsMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var opts []bridge.SetDownloadOptionsMessage
	for _, m := range f.Messages {
		if o, ok := m.(bridge.SetDownloadOptionsMessage); ok {
			opts = append(opts, o)
		}
	}
	return opts
}

// FakePrint records print messages.
type FakePrint struct {
	mu       sync.Mutex
	Messages []bridge.PrintMessage
	Fail     bool
}

// SendMessage implements bridge.Print.
func (f *FakePrint) SendMessage(_ context.Context, msg bridge.PrintMessage) (bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, msg)
	if f.Fail {
		return bridge.Response{Success: false, Error: "print service failure"}, nil
	}
	return bridge.Response{Success: true}, nil
}

// FakeWinClick records click messages.
type FakeWinClick struct {
	mu     sync.Mutex
	Clicks []bridge.WinClickMessage
	Fail   bool
}

// Click implements bridge.WinClick.
func (f *FakeWinClick) Click(_ context.Context, msg bridge.WinClickMessage) (bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, msg)
	if f.Fail {
		return bridge.Response{Success: false, Error: "click service failure"}, nil
	}
	return bridge.Response{Success: true}, nil
}

// FakeFlowUI scripts the operator's answers. Cancel* flags make the
// corresponding call return bridge.ErrCancelled.
type FakeFlowUI struct {
	mu sync.Mutex

	PromptAnswer string
	CancelPause  bool
	CancelPrompt bool

	Pauses  []string
	Alerts  []string
	Prompts [][2]string // message, default
}

// ShowPause implements bridge.FlowControlUI.
func (f *FakeFlowUI) ShowPause(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses = append(f.Pauses, message)
	if f.CancelPause {
		return bridge.ErrCancelled
	}
	return nil
}

// ShowPrompt implements bridge.FlowControlUI.
func (f *FakeFlowUI) ShowPrompt(_ context.Context, message, defaultValue string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, [2]string{message, defaultValue})
	if f.CancelPrompt {
		return "", bridge.ErrCancelled
	}
	return f.PromptAnswer, nil
}

// ShowAlert implements bridge.FlowControlUI.
func (f *FakeFlowUI) ShowAlert(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Alerts = append(f.Alerts, message)
	return nil
}

// FakePage is a scriptable page driver. TagResults are consumed in
// order; when exhausted, Tag reports found with empty extraction.
type FakePage struct {
	mu         sync.Mutex
	Navigated  []string
	TagReqs    []bridge.TagRequest
	TagResults []bridge.TagResult
	NavErr     error

	Backs, Refreshes, Clears int
	Frames                   []bridge.FrameRef
	Tabs                     []int
}

// Navigate implements bridge.PageDriver.
func (f *FakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigated = append(f.Navigated, url)
	return f.NavErr
}

// Tag implements bridge.PageDriver.
func (f *FakePage) Tag(_ context.Context, req bridge.TagRequest) (bridge.TagResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TagReqs = append(f.TagReqs, req)
	if len(f.TagResults) == 0 {
		return bridge.TagResult{Found: true}, nil
	}
	res := f.TagResults[0]
	f.TagResults = f.TagResults[1:]
	return res, nil
}

// Back implements bridge.PageDriver.
func (f *FakePage) Back(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Backs++
	return nil
}

// Refresh implements bridge.PageDriver.
func (f *FakePage) Refresh(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refreshes++
	return nil
}

// SelectFrame implements bridge.PageDriver.
func (f *FakePage) SelectFrame(_ context.Context, ref bridge.FrameRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Frames = append(f.Frames, ref)
	return nil
}

// SelectTab implements bridge.PageDriver.
func (f *FakePage) SelectTab(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tabs = append(f.Tabs, index)
	return nil
}

// Clear implements bridge.PageDriver.
func (f *FakePage) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clears++
	return nil
}
