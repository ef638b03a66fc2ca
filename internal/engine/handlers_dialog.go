package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/crypt"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

// handleOnDialog queues a dialog answer in the page-side interceptor.
// POS defaults to 1; BUTTON coerces unknown values to CANCEL.
func handleOnDialog(ctx context.Context, c *Context) errcode.Result {
	pos := 1
	if raw, ok := c.Param("POS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(c.Expand(raw)))
		if err != nil || n < 1 {
			return errcode.Failf(errcode.InvalidParameter, "ONDIALOG: invalid POS value %q", raw)
		}
		pos = n
	}
	button, res := c.RequiredParam("BUTTON")
	if res != nil {
		return *res
	}

	cfg := bridge.DialogConfig{
		Pos:    pos,
		Button: bridge.ParseButton(button),
		Active: true,
	}
	if content, ok := c.ExpandedParam("CONTENT"); ok {
		cfg.Content = &content
	}

	d := bridge.DialogBridge()
	if d == nil {
		return errcode.Okay()
	}
	resp, err := d.SendMessage(ctx, bridge.NewDialogConfigMessage(cfg, true))
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "ONDIALOG: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.ScriptError, "ONDIALOG: %s", resp.Error)
	}
	return errcode.Okay()
}

// handleOnLogin arms the interceptor for an HTTP auth dialog. PASSWORD
// may be stored in either encrypted format; it is decrypted with
// !ENCRYPTIONKEY before the config is sent.
func handleOnLogin(ctx context.Context, c *Context) errcode.Result {
	user, res := c.RequiredParam("USER")
	if res != nil {
		return *res
	}
	password, res := c.RequiredParam("PASSWORD")
	if res != nil {
		return *res
	}
	user = c.Expand(user)
	password = c.Expand(password)

	if key := c.Store().Text("!ENCRYPTIONKEY"); key != "" && crypt.IsEncrypted(password) {
		plain, err := crypt.Decrypt(password, key)
		if err != nil {
			return errcode.Fail(errcode.EncryptionError, "ONLOGIN: cannot decrypt password")
		}
		password = plain
	}

	content := user + "\n" + password
	cfg := bridge.DialogConfig{
		Pos:     1,
		Button:  bridge.ButtonOK,
		Content: &content,
		Active:  true,
	}
	msg := bridge.NewDialogConfigMessage(cfg, false)
	msg.DialogTypes = []string{"login"}

	d := bridge.DialogBridge()
	if d == nil {
		return errcode.Okay()
	}
	resp, err := d.SendMessage(ctx, msg)
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "ONLOGIN: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.ScriptError, "ONLOGIN: %s", resp.Error)
	}
	return errcode.Okay()
}
