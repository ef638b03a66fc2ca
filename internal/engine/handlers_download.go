package engine

import (
	"context"
	"strings"

	"github.com/chapelsoftware/go-imacros/internal/bridge"
	"github.com/chapelsoftware/go-imacros/internal/errcode"
)

// illegalFileChars are rejected in FILE= values.
const illegalFileChars = `<>|?*`

var saveAsTypes = map[string]bool{
	"HTM":  true,
	"TXT":  true,
	"PNG":  true,
	"PDF":  true,
	"BMP":  true,
	"JPEG": true,
}

// handleOnDownload configures the next download and arms the timeout
// manager. FOLDER=* means the browser default; FILE=* or FILE=+ means
// the server-suggested name. CHECKSUM requires WAIT=YES.
func handleOnDownload(ctx context.Context, c *Context) errcode.Result {
	rawFolder, hasFolder := c.ExpandedParam("FOLDER")
	rawFile, hasFile := c.ExpandedParam("FILE")
	if !hasFolder && !hasFile {
		return errcode.Fail(errcode.MissingParameter, "ONDOWNLOAD: need FOLDER= or FILE=")
	}

	var folder, file *string
	if hasFolder && rawFolder != "*" {
		if strings.ContainsRune(rawFolder, 0) {
			return errcode.Failf(errcode.DownloadFolderAccess,
				"ONDOWNLOAD: invalid FOLDER value %q", rawFolder)
		}
		folder = &rawFolder
	}
	if hasFile && rawFile != "*" && rawFile != "+" {
		if strings.ContainsAny(rawFile, illegalFileChars) {
			return errcode.Failf(errcode.DownloadInvalidFilename,
				"ONDOWNLOAD: illegal character in FILE value %q", rawFile)
		}
		file = &rawFile
	}

	wait := true
	if raw, ok := c.Param("WAIT"); ok {
		switch strings.ToUpper(strings.TrimSpace(raw)) {
		case "YES", "TRUE":
			wait = true
		default:
			wait = false
		}
	}

	var sum *bridge.Checksum
	if raw, ok := c.Param("CHECKSUM"); ok {
		parsed, res := parseChecksum(raw)
		if res != nil {
			return *res
		}
		if !wait {
			return errcode.Fail(errcode.InvalidParameter,
				"ONDOWNLOAD: CHECKSUM requires WAIT=YES")
		}
		sum = parsed
	}

	if d := bridge.DownloadBridge(); d != nil {
		msg := bridge.NewSetDownloadOptionsMessage(folder, file, wait, sum)
		resp, err := d.SendMessage(ctx, msg)
		if err != nil {
			return errcode.Failf(errcode.DownloadError, "ONDOWNLOAD: %v", err)
		}
		if !resp.Success {
			return errcode.Failf(errcode.DownloadError, "ONDOWNLOAD: %s", resp.Error)
		}
	}

	// The window opens only after the options are acknowledged.
	c.exec.timeout.Start(c.Store().Number("!TIMEOUT_TAG", 10))
	if wait {
		c.exec.downloadWait.Store(true)
	}
	return errcode.Okay()
}

// parseChecksum validates ALGO:HEX with the digest length matching the
// algorithm, normalising the digest to lower case.
func parseChecksum(raw string) (*bridge.Checksum, *errcode.Result) {
	fail := func() (*bridge.Checksum, *errcode.Result) {
		res := errcode.Failf(errcode.InvalidParameter,
			"ONDOWNLOAD: invalid CHECKSUM value %q", raw)
		return nil, &res
	}

	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return fail()
	}
	algo := bridge.ChecksumAlgo(strings.ToUpper(parts[0]))
	digest := strings.ToLower(parts[1])

	var wantLen int
	switch algo {
	case bridge.ChecksumMD5:
		wantLen = 32
	case bridge.ChecksumSHA1:
		wantLen = 40
	default:
		return fail()
	}
	if len(digest) != wantLen {
		return fail()
	}
	for _, ch := range digest {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return fail()
		}
	}
	return &bridge.Checksum{Algorithm: algo, Digest: digest}, nil
}

// handleSaveAs captures the page to disk. PDF goes through the print
// service; every other type is a saveAs message on the download bridge.
func handleSaveAs(ctx context.Context, c *Context) errcode.Result {
	rawType, res := c.RequiredParam("TYPE")
	if res != nil {
		return *res
	}
	saveType := strings.ToUpper(strings.TrimSpace(rawType))
	if !saveAsTypes[saveType] {
		return errcode.Failf(errcode.InvalidParameter, "SAVEAS: invalid TYPE value %q", rawType)
	}
	file, res := c.RequiredParam("FILE")
	if res != nil {
		return *res
	}
	file = c.Expand(file)
	if strings.ContainsAny(file, illegalFileChars) {
		return errcode.Failf(errcode.DownloadInvalidFilename,
			"SAVEAS: illegal character in FILE value %q", file)
	}
	var folder *string
	if f, ok := c.ExpandedParam("FOLDER"); ok && f != "*" {
		folder = &f
	}

	if saveType == "PDF" {
		p := bridge.PrintBridge()
		if p == nil {
			return errcode.Okay()
		}
		msg := bridge.NewPrintMessage("printToPDF")
		msg.File = file
		msg.Folder = folder
		resp, err := p.SendMessage(ctx, msg)
		if err != nil {
			return errcode.Failf(errcode.ScriptError, "SAVEAS: %v", err)
		}
		if !resp.Success {
			return errcode.Failf(errcode.ScriptError, "SAVEAS: %s", resp.Error)
		}
		return errcode.Okay()
	}

	d := bridge.DownloadBridge()
	if d == nil {
		return errcode.Okay()
	}
	resp, err := d.SendMessage(ctx, bridge.NewSaveAsMessage(saveType, file, folder))
	if err != nil {
		return errcode.Failf(errcode.DownloadError, "SAVEAS: %v", err)
	}
	if !resp.Success {
		return errcode.Failf(errcode.DownloadError, "SAVEAS: %s", resp.Error)
	}
	return errcode.Okay()
}
