// Package errcode defines the error taxonomy of the iim macro dialect.
// The integer codes are frozen: legacy scripts and host integrations key
// off the numeric values, so they must never change.
package errcode

import "fmt"

// Kind identifies a class of macro error.
type Kind int

const (
	// OK means the command succeeded.
	OK Kind = iota
	// MissingParameter means a required named parameter was absent.
	MissingParameter
	// InvalidParameter means a parameter value failed validation.
	InvalidParameter
	// ScriptError means a handler threw or a bridge failed generically.
	ScriptError
	// ElementNotFound means a TAG selector matched nothing.
	ElementNotFound
	// UserAbort means the flow UI was cancelled by the operator.
	UserAbort
	// DownloadError means the download bridge failed.
	DownloadError
	// DownloadTimeout means no download was observed within the window.
	DownloadTimeout
	// DownloadInvalidFilename means FILE= contained an illegal character.
	DownloadInvalidFilename
	// DownloadFolderAccess means FOLDER= named a bad path.
	DownloadFolderAccess
	// UnhandledDialog means a dialog appeared with an empty config queue.
	UnhandledDialog
	// EncryptionError means decryption failed (wrong password or corrupt
	// data). The legacy code is positive, unlike every other failure.
	EncryptionError
)

var codes = map[Kind]int{
	OK:                      1,
	MissingParameter:        -801,
	InvalidParameter:        -802,
	ScriptError:             -910,
	ElementNotFound:         -921,
	UserAbort:               -933,
	DownloadError:           -950,
	DownloadTimeout:         -952,
	DownloadInvalidFilename: -954,
	DownloadFolderAccess:    -955,
	UnhandledDialog:         -1450,
	EncryptionError:         942,
}

var names = map[Kind]string{
	OK:                      "OK",
	MissingParameter:        "MISSING_PARAMETER",
	InvalidParameter:        "INVALID_PARAMETER",
	ScriptError:             "SCRIPT_ERROR",
	ElementNotFound:         "ELEMENT_NOT_FOUND",
	UserAbort:               "USER_ABORT",
	DownloadError:           "DOWNLOAD_ERROR",
	DownloadTimeout:         "DOWNLOAD_TIMEOUT",
	DownloadInvalidFilename: "DOWNLOAD_INVALID_FILENAME",
	DownloadFolderAccess:    "DOWNLOAD_FOLDER_ACCESS",
	UnhandledDialog:         "UNHANDLED_DIALOG",
	EncryptionError:         "ENCRYPTION_ERROR",
}

// Code returns the legacy integer code for the kind.
func (k Kind) Code() int {
	return codes[k]
}

// String returns the symbolic name of the kind.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of executing one macro command. Handlers return a
// Result instead of an error; the executor inspects Success and Code to
// decide whether to continue.
type Result struct {
	Success bool
	Code    int
	Message string
	// Line is the 1-based source line of the failing command, when known.
	Line int
}

// Okay returns a successful Result.
func Okay() Result {
	return Result{Success: true, Code: OK.Code()}
}

// Fail returns a failed Result of the given kind.
func Fail(k Kind, msg string) Result {
	return Result{Code: k.Code(), Message: msg}
}

// Failf returns a failed Result with a formatted message.
func Failf(k Kind, format string, args ...any) Result {
	return Fail(k, fmt.Sprintf(format, args...))
}

// Kind maps the Result's code back to its taxonomy kind. Unrecognised
// codes map to ScriptError.
func (r Result) Kind() Kind {
	for k, c := range codes {
		if c == r.Code {
			return k
		}
	}
	return ScriptError
}

// Is reports whether the Result failed with the given kind.
func (r Result) Is(k Kind) bool {
	return !r.Success && r.Code == k.Code()
}

// String renders the Result for logs and CLI output.
func (r Result) String() string {
	if r.Success {
		return "OK (1)"
	}
	if r.Line > 0 {
		return fmt.Sprintf("%s (%d) at line %d: %s", r.Kind(), r.Code, r.Line, r.Message)
	}
	return fmt.Sprintf("%s (%d): %s", r.Kind(), r.Code, r.Message)
}
