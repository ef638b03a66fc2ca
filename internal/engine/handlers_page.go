package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

var extractKinds = map[string]bool{
	"TXT":   true,
	"HTM":   true,
	"HREF":  true,
	"TBL":   true,
	"TITLE": true,
	"URL":   true,
}

// handleURL navigates through the page driver, awaiting readiness up to
// !TIMEOUT_PAGE seconds.
func handleURL(ctx context.Context, c *Context) errcode.Result {
	target, res := c.RequiredParam("GOTO")
	if res != nil {
		return *res
	}
	target = c.Expand(target)

	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	timeout := time.Duration(c.Store().Number("!TIMEOUT_PAGE", 60) * float64(time.Second))
	if err := page.Navigate(ctx, target, timeout); err != nil {
		return errcode.Failf(errcode.ScriptError, "URL: navigation failed: %v", err)
	}
	return errcode.Okay()
}

// handleTag selects an element through the page driver, fills CONTENT or
// appends an EXTRACT value to the extract buffer. A missing element is
// ELEMENT_NOT_FOUND; the executor applies !ERRORIGNORE.
func handleTag(ctx context.Context, c *Context) errcode.Result {
	req := bridge.TagRequest{Pos: 1}

	if raw, ok := c.Param("POS"); ok {
		pos, err := strconv.Atoi(strings.TrimSpace(c.Expand(raw)))
		if err != nil || pos < 1 {
			return errcode.Failf(errcode.InvalidParameter, "TAG: invalid POS value %q", raw)
		}
		req.Pos = pos
	}
	req.Type, _ = c.Param("TYPE")
	req.Form, _ = c.Param("FORM")
	if attrs, ok := c.ExpandedParam("ATTR"); ok {
		req.Attrs = attrs
	}
	if content, ok := c.ExpandedParam("CONTENT"); ok {
		req.Content = content
	}
	if extract, ok := c.Param("EXTRACT"); ok {
		extract = strings.ToUpper(strings.TrimSpace(extract))
		if !extractKinds[extract] {
			return errcode.Failf(errcode.InvalidParameter, "TAG: invalid EXTRACT kind %q", extract)
		}
		req.Extract = extract
	}
	req.Timeout = time.Duration(c.Store().Number("!TIMEOUT_TAG", 10) * float64(time.Second))

	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	result, err := page.Tag(ctx, req)
	if err != nil {
		return errcode.Failf(errcode.ScriptError, "TAG: %v", err)
	}
	if !result.Found {
		return errcode.Failf(errcode.ElementNotFound,
			"TAG: no element matched POS=%d TYPE=%s ATTR=%s", req.Pos, req.Type, req.Attrs)
	}
	if req.Extract != "" {
		c.AddExtract(result.Extracted)
	}
	return errcode.Okay()
}

func handleBack(ctx context.Context, _ *Context) errcode.Result {
	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	if err := page.Back(ctx); err != nil {
		return errcode.Failf(errcode.ScriptError, "BACK: %v", err)
	}
	return errcode.Okay()
}

func handleRefresh(ctx context.Context, _ *Context) errcode.Result {
	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	if err := page.Refresh(ctx); err != nil {
		return errcode.Failf(errcode.ScriptError, "REFRESH: %v", err)
	}
	return errcode.Okay()
}

// handleFrame selects a frame by F=index or NAME=name.
func handleFrame(ctx context.Context, c *Context) errcode.Result {
	var ref bridge.FrameRef
	if name, ok := c.ExpandedParam("NAME"); ok {
		ref.Name = name
	} else if raw, ok := c.Param("F"); ok {
		idx, err := strconv.Atoi(strings.TrimSpace(c.Expand(raw)))
		if err != nil || idx < 0 {
			return errcode.Failf(errcode.InvalidParameter, "FRAME: invalid F value %q", raw)
		}
		ref.Index = idx
	} else {
		return errcode.Fail(errcode.MissingParameter, "FRAME: need F= or NAME=")
	}

	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	if err := page.SelectFrame(ctx, ref); err != nil {
		return errcode.Failf(errcode.ScriptError, "FRAME: %v", err)
	}
	return errcode.Okay()
}

// handleTab selects a tab: T=n, 1-based.
func handleTab(ctx context.Context, c *Context) errcode.Result {
	raw, res := c.RequiredParam("T")
	if res != nil {
		return *res
	}
	index, err := strconv.Atoi(strings.TrimSpace(c.Expand(raw)))
	if err != nil || index < 1 {
		return errcode.Failf(errcode.InvalidParameter, "TAB: invalid T value %q", raw)
	}

	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	if err := page.SelectTab(ctx, index); err != nil {
		return errcode.Failf(errcode.ScriptError, "TAB: %v", err)
	}
	return errcode.Okay()
}

// handleClear clears browser data (cookies and cache) via the driver.
func handleClear(ctx context.Context, _ *Context) errcode.Result {
	page := bridge.Page()
	if page == nil {
		return errcode.Okay()
	}
	if err := page.Clear(ctx); err != nil {
		return errcode.Failf(errcode.ScriptError, "CLEAR: %v", err)
	}
	return errcode.Okay()
}
