package bridge_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/bridge/bridgetest"
)

func TestRegistrySetAndReset(t *testing.T) {
	t.Cleanup(bridge.ResetBridges)

	d := &bridgetest.FakeDialog{}
	bridge.SetDialogBridge(d)
	require.NotNil(t, bridge.DialogBridge())

	bridge.ResetBridges()
	assert.Nil(t, bridge.DialogBridge())
	assert.Nil(t, bridge.DownloadBridge())
	assert.Nil(t, bridge.Page())
}

func TestDialogConfigWireShape(t *testing.T) {
	content := "typed"
	msg := bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos:     1,
		Button:  bridge.ButtonOK,
		Content: &content,
		Active:  true,
	}, true)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "DIALOG_CONFIG", decoded["type"])
	assert.Equal(t, []any{"alert", "confirm", "prompt", "beforeunload"}, decoded["dialogTypes"])
	payload := decoded["payload"].(map[string]any)
	config := payload["config"].(map[string]any)
	assert.Equal(t, float64(1), config["pos"])
	assert.Equal(t, "OK", config["button"])
	assert.Equal(t, "typed", config["content"])
	assert.Equal(t, true, config["active"])
	_, hasTimeout := config["timeout"]
	assert.False(t, hasTimeout, "unset timeout must be omitted")
}

// TestDialogQueueOrder covers the consumption contract: N configs with
// append, then N dialogs; the i-th dialog sees the button at the i-th
// queue position (sorted by pos) and the queue is empty afterwards.
func TestDialogQueueOrder(t *testing.T) {
	d := &bridgetest.FakeDialog{}
	ctx := context.Background()

	buttons := []bridge.Button{bridge.ButtonNo, bridge.ButtonOK, bridge.ButtonYes}
	positions := []int{3, 1, 2}
	for i, b := range buttons {
		msg := bridge.NewDialogConfigMessage(bridge.DialogConfig{
			Pos: positions[i], Button: b, Active: true,
		}, true)
		resp, err := d.SendMessage(ctx, msg)
		require.NoError(t, err)
		require.True(t, resp.Success)
	}

	// Sorted by pos: OK (1), YES (2), NO (3).
	want := []bridge.Button{bridge.ButtonOK, bridge.ButtonYes, bridge.ButtonNo}
	for i, expected := range want {
		ev := d.Intercept("confirm", "sure?", "")
		assert.False(t, ev.Unhandled, "event %d unhandled", i)
		assert.Equal(t, expected, ev.Response.Button, "event %d", i)
	}

	assert.Zero(t, d.QueueLen(), "queue must be empty after consumption")

	ev := d.Intercept("alert", "late", "")
	assert.True(t, ev.Unhandled, "empty queue must yield the unhandled signal")
	assert.Equal(t, bridge.ButtonCancel, ev.Response.Button)
}

func TestDialogPromptConsumption(t *testing.T) {
	d := &bridgetest.FakeDialog{}
	ctx := context.Background()

	content := "from config"
	_, err := d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos: 1, Button: bridge.ButtonOK, Content: &content, Active: true,
	}, true))
	require.NoError(t, err)
	_, err = d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos: 2, Button: bridge.ButtonOK, Active: true,
	}, true))
	require.NoError(t, err)
	_, err = d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos: 3, Button: bridge.ButtonCancel, Active: true,
	}, true))
	require.NoError(t, err)

	// Configured content wins over the page default.
	ev := d.Intercept("prompt", "name?", "page default")
	require.NotNil(t, ev.Response.Value)
	assert.Equal(t, "from config", *ev.Response.Value)

	// No content: the page default is returned.
	ev = d.Intercept("prompt", "name?", "page default")
	require.NotNil(t, ev.Response.Value)
	assert.Equal(t, "page default", *ev.Response.Value)

	// Cancel: a prompt returns the null form.
	ev = d.Intercept("prompt", "name?", "page default")
	assert.Nil(t, ev.Response.Value)
}

func TestDialogReset(t *testing.T) {
	d := &bridgetest.FakeDialog{}
	ctx := context.Background()

	_, err := d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos: 1, Button: bridge.ButtonOK, Active: true,
	}, true))
	require.NoError(t, err)
	require.Equal(t, 1, d.QueueLen())

	resp, err := d.SendMessage(ctx, bridge.NewDialogResetMessage())
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Zero(t, d.QueueLen(), "reset must clear the queue")
}

func TestDialogReplaceWholesale(t *testing.T) {
	d := &bridgetest.FakeDialog{}
	ctx := context.Background()

	for pos := 1; pos <= 3; pos++ {
		_, err := d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
			Pos: pos, Button: bridge.ButtonNo, Active: true,
		}, true))
		require.NoError(t, err)
	}

	// append=false replaces the queue wholesale.
	_, err := d.SendMessage(ctx, bridge.NewDialogConfigMessage(bridge.DialogConfig{
		Pos: 1, Button: bridge.ButtonYes, Active: true,
	}, false))
	require.NoError(t, err)
	require.Equal(t, 1, d.QueueLen())

	ev := d.Intercept("confirm", "replaced?", "")
	assert.Equal(t, bridge.ButtonYes, ev.Response.Button)
}

func TestParseButton(t *testing.T) {
	assert.Equal(t, bridge.ButtonOK, bridge.ParseButton("ok"))
	assert.Equal(t, bridge.ButtonYes, bridge.ParseButton(" Yes "))
	assert.Equal(t, bridge.ButtonCancel, bridge.ParseButton("whatever"))
}

func TestParseMouseButton(t *testing.T) {
	b, ok := bridge.ParseMouseButton("center")
	assert.True(t, ok)
	assert.Equal(t, bridge.MouseMiddle, b)

	_, ok = bridge.ParseMouseButton("double")
	assert.False(t, ok)
}
