package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/bridge/bridgetest"
	"github.com/chapelsoftware/go-imacros/internal/engine"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

func newRunner(t *testing.T, source string, opts ...engine.Option) *engine.Executor {
	t.Helper()
	t.Cleanup(bridge.ResetBridges)

	e := engine.New(opts...)
	res := e.LoadMacro(source, t.Name())
	require.True(t, res.Success, "LoadMacro failed: %s", res.Message)
	return e
}

func TestPromptScenario(t *testing.T) {
	ui := &bridgetest.FakeFlowUI{PromptAnswer: "typed"}
	bridge.SetFlowControlUI(ui)

	e := newRunner(t, "SET !VAR1 hello\nPROMPT \"Say\" !VAR2 world\n")
	res := e.Execute(context.Background())

	require.True(t, res.Success, "execute failed: %s", res.Message)
	assert.Equal(t, "hello", res.Variables["!VAR1"])
	assert.Equal(t, "typed", res.Variables["!VAR2"])
	require.Len(t, ui.Prompts, 1)
	assert.Equal(t, [2]string{"Say", "world"}, ui.Prompts[0])
}

func TestPromptCancelKeepsVariable(t *testing.T) {
	ui := &bridgetest.FakeFlowUI{CancelPrompt: true}
	bridge.SetFlowControlUI(ui)

	e := newRunner(t, "SET !VAR2 before\nPROMPT \"Say\" !VAR2\n")
	res := e.Execute(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "before", res.Variables["!VAR2"], "cancel must not write the variable")
}

func TestOnDialogScenario(t *testing.T) {
	d := &bridgetest.FakeDialog{}
	bridge.SetDialogBridge(d)

	e := newRunner(t, "ONDIALOG POS=1 BUTTON=OK\n")
	res := e.Execute(context.Background())
	require.True(t, res.Success, "execute failed: %s", res.Message)

	require.Len(t, d.Messages, 1)
	msg, ok := d.Messages[0].(bridge.DialogConfigMessage)
	require.True(t, ok, "message type %T", d.Messages[0])
	assert.Equal(t, "DIALOG_CONFIG", msg.Type)
	assert.Equal(t, []string{"alert", "confirm", "prompt", "beforeunload"}, msg.DialogTypes)
	assert.Equal(t, 1, msg.Payload.Config.Pos)
	assert.Equal(t, bridge.ButtonOK, msg.Payload.Config.Button)
	assert.True(t, msg.Payload.Config.Active)
	assert.Nil(t, msg.Payload.Config.Content)
}

func TestOnDialogBridgeFailure(t *testing.T) {
	d := &bridgetest.FakeDialog{Fail: true}
	bridge.SetDialogBridge(d)

	e := newRunner(t, "ONDIALOG POS=1 BUTTON=OK\n")
	res := e.Execute(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, errcode.ScriptError.Code(), res.Code)
}

func TestOnDialogNoBridgeIsTestMode(t *testing.T) {
	e := newRunner(t, "ONDIALOG POS=1 BUTTON=OK\n")
	res := e.Execute(context.Background())
	assert.True(t, res.Success)
}

func TestOnDownloadIllegalFilename(t *testing.T) {
	d := &bridgetest.FakeDownload{}
	bridge.SetDownloadBridge(d)

	e := newRunner(t, "ONDOWNLOAD FOLDER=/out FILE=x<y.pdf\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -954, res.Code)
	assert.Empty(t, d.Messages, "no bridge message may be sent on validation failure")
}

func TestOnDownloadChecksumNeedsWait(t *testing.T) {
	e := newRunner(t, "ONDOWNLOAD FOLDER=/out FILE=a.pdf WAIT=NO CHECKSUM=MD5:d41d8cd98f00b204e9800998ecf8427e\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -802, res.Code)
	assert.Contains(t, res.Message, "CHECKSUM requires WAIT=YES")
}

func TestOnDownloadWireShape(t *testing.T) {
	d := &bridgetest.FakeDownload{}
	bridge.SetDownloadBridge(d)

	e := newRunner(t, "ONDOWNLOAD FOLDER=* FILE=+ WAIT=YES CHECKSUM=SHA1:DA39A3EE5E6B4B0D3255BFEF95601890AFD80709\n")
	go func() {
		time.Sleep(50 * time.Millisecond)
		e.NotifyDownloadStarted()
	}()
	res := e.Execute(context.Background())

	require.True(t, res.Success, "execute failed: %s", res.Message)
	opts := d.Options()
	require.Len(t, opts, 1)
	assert.Nil(t, opts[0].Folder, "FOLDER=* transmits absent")
	assert.Nil(t, opts[0].File, "FILE=+ transmits absent")
	assert.True(t, opts[0].Wait)
	require.NotNil(t, opts[0].Checksum)
	assert.Equal(t, bridge.ChecksumSHA1, opts[0].Checksum.Algorithm)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", opts[0].Checksum.Digest)
}

func TestWaitNegativeSeconds(t *testing.T) {
	e := newRunner(t, "WAIT SECONDS=-1\n")

	start := time.Now()
	res := e.Execute(context.Background())
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, -802, res.Code)
	assert.Less(t, elapsed, time.Second, "no delay may be observed")
}

func TestWaitClampsToTimeoutStep(t *testing.T) {
	e := newRunner(t, "SET !TIMEOUT_STEP 0.05\nWAIT SECONDS=30\n")

	start := time.Now()
	res := e.Execute(context.Background())
	elapsed := time.Since(start)

	require.True(t, res.Success, "execute failed: %s", res.Message)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second, "WAIT must clamp to !TIMEOUT_STEP")
}

func TestDownloadTimeoutScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the 4s minimum download window")
	}
	d := &bridgetest.FakeDownload{}
	bridge.SetDownloadBridge(d)

	// 4 * 0.5 clamps to the 4 second floor.
	e := newRunner(t, "SET !TIMEOUT_TAG 0.5\nONDOWNLOAD FOLDER=/out FILE=r.pdf\nSET !VAR1 1\n")

	start := time.Now()
	res := e.Execute(context.Background())
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, -952, res.Code)
	assert.GreaterOrEqual(t, elapsed, 3900*time.Millisecond)
}

func TestDownloadNotificationUnblocks(t *testing.T) {
	d := &bridgetest.FakeDownload{}
	bridge.SetDownloadBridge(d)

	e := newRunner(t, "ONDOWNLOAD FOLDER=/out FILE=r.pdf WAIT=YES\n")
	go func() {
		time.Sleep(50 * time.Millisecond)
		e.NotifyDownloadStarted()
	}()

	start := time.Now()
	res := e.Execute(context.Background())
	elapsed := time.Since(start)

	require.True(t, res.Success, "execute failed: %s", res.Message)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPendingErrorAdoptedBetweenCommands(t *testing.T) {
	e := newRunner(t, "SET !VAR1 a\nSET !VAR2 b\nSET !VAR3 c\n")
	e.RegisterHandler("SET", func(_ context.Context, c *engine.Context) errcode.Result {
		if c.Command().Positionals()[0] == "!VAR2" {
			c.SetPendingError(errcode.Fail(errcode.DownloadTimeout, "injected"))
		}
		return errcode.Okay()
	})

	res := e.Execute(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, -952, res.Code)
}

func TestErrorIgnoreContinues(t *testing.T) {
	e := newRunner(t, "SET !ERRORIGNORE YES\nFLY TO=MOON\nSET !VAR1 after\n")
	res := e.Execute(context.Background())

	require.True(t, res.Success, "execute failed: %s", res.Message)
	assert.Equal(t, "after", res.Variables["!VAR1"])
}

func TestErrorIgnoreReportsTrailingFailure(t *testing.T) {
	// With !ERRORIGNORE the run continues, but a failure on the last
	// command is what the macro reports.
	e := newRunner(t, "SET !ERRORIGNORE YES\nFLY TO=MOON\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -802, res.Code)
}

func TestUnknownCommandStrict(t *testing.T) {
	e := newRunner(t, "FLY TO=MOON\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -802, res.Code)
	assert.Contains(t, res.Message, "FLY")
	assert.Equal(t, 1, res.Line)
}

func TestUnknownCommandLenient(t *testing.T) {
	e := newRunner(t, "FLY TO=MOON\nSET !VAR1 landed\n", engine.WithLenientUnknown())
	res := e.Execute(context.Background())

	require.True(t, res.Success)
	assert.Equal(t, "landed", res.Variables["!VAR1"])
}

func TestPauseCancelBypassesErrorIgnore(t *testing.T) {
	ui := &bridgetest.FakeFlowUI{CancelPause: true}
	bridge.SetFlowControlUI(ui)

	e := newRunner(t, "SET !ERRORIGNORE YES\nPAUSE\nSET !VAR1 never\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -933, res.Code)
	assert.Equal(t, "", res.Variables["!VAR1"], "commands after USER_ABORT must not run")
}

func TestReadonlyVariableSet(t *testing.T) {
	e := newRunner(t, "SET !LOOP 5\n")
	res := e.Execute(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, -802, res.Code)
	assert.Equal(t, "1", res.Variables["!LOOP"], "stored value must be unchanged")
}

func TestParseErrorReportsLine(t *testing.T) {
	e := engine.New()
	res := e.LoadMacro("SET !VAR1 ok\nSET !VAR2 \"broken\n", "bad")
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Line)
	assert.Equal(t, engine.StateError, e.State())
}

func TestStopEndsRun(t *testing.T) {
	// Stop is honoured between commands: a run of short waits ends at
	// the first check after Stop.
	source := strings.Repeat("WAIT SECONDS=0.2\n", 20) + "SET !VAR1 never\n"
	e := newRunner(t, source)

	done := make(chan engine.ExecutionResult, 1)
	go func() { done <- e.Execute(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	e.Stop()

	select {
	case res := <-done:
		assert.False(t, res.Success)
		assert.Equal(t, -933, res.Code)
		assert.Equal(t, "", res.Variables["!VAR1"], "stop must end the run")
	case <-time.After(5 * time.Second):
		t.Fatal("executor did not stop")
	}
}

func TestPauseHoldsLoop(t *testing.T) {
	e := newRunner(t, "SET !VAR1 a\nSET !VAR2 b\n")
	e.Pause()

	done := make(chan engine.ExecutionResult, 1)
	go func() { done <- e.Execute(context.Background()) }()

	select {
	case <-done:
		t.Fatal("executor ran while paused")
	case <-time.After(100 * time.Millisecond):
	}

	e.Resume()
	select {
	case res := <-done:
		require.True(t, res.Success)
		assert.Equal(t, "b", res.Variables["!VAR2"])
	case <-time.After(5 * time.Second):
		t.Fatal("executor did not resume")
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newRunner(t, "SET !VAR1 x\n")
	res := e.Execute(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, -933, res.Code)
}

func TestLoadMacroResetsState(t *testing.T) {
	e := newRunner(t, "SET !VAR1 first\nTAG POS=1 TYPE=DIV ATTR=* EXTRACT=TXT\n")
	page := &bridgetest.FakePage{TagResults: []bridge.TagResult{{Found: true, Extracted: "value"}}}
	bridge.SetPageDriver(page)

	res := e.Execute(context.Background())
	require.True(t, res.Success, "execute failed: %s", res.Message)
	assert.Equal(t, []string{"value"}, e.Extracts())

	// A fresh load drops user state and the extract buffer but keeps
	// registered handlers.
	load := e.LoadMacro("SET !VAR2 second\n", "next")
	require.True(t, load.Success)
	assert.Empty(t, e.Extracts())

	res = e.Execute(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, "", res.Variables["!VAR1"])
	assert.Equal(t, "second", res.Variables["!VAR2"])
}

func TestRegisterHandlerOverride(t *testing.T) {
	var called bool
	e := newRunner(t, "WAIT SECONDS=30\n")
	e.RegisterHandler("WAIT", func(context.Context, *engine.Context) errcode.Result {
		called = true
		return errcode.Okay()
	})

	res := e.Execute(context.Background())
	require.True(t, res.Success)
	assert.True(t, called, "override handler must replace the built-in")
}
