package bridge

import (
	"strings"

	"github.com/google/uuid"
)

// Button is a dialog button choice.
type Button string

// Dialog buttons. Only OK and YES accept a dialog; everything else is a
// cancel form.
const (
	ButtonOK     Button = "OK"
	ButtonCancel Button = "CANCEL"
	ButtonYes    Button = "YES"
	ButtonNo     Button = "NO"
)

// ParseButton coerces a parameter value into a Button. Unknown values
// map to CANCEL, the legacy fallback.
func ParseButton(s string) Button {
	switch Button(strings.ToUpper(strings.TrimSpace(s))) {
	case ButtonOK:
		return ButtonOK
	case ButtonYes:
		return ButtonYes
	case ButtonNo:
		return ButtonNo
	default:
		return ButtonCancel
	}
}

// Accepts reports whether the button accepts the intercepted dialog.
func (b Button) Accepts() bool {
	return b == ButtonOK || b == ButtonYes
}

// Custom DOM event names of the dialog interceptor protocol. The script
// inside the page listens for the page-in events and emits the page-out
// ones.
const (
	EventDialogConfig         = "__imacros_dialog_config"
	EventDialogReset          = "__imacros_dialog_reset"
	EventDialogStatusRequest  = "__imacros_dialog_status_request"
	EventDialogStatusResponse = "__imacros_dialog_status_response"
	EventDialogEvent          = "__imacros_dialog_event"
)

// DialogTypes is the fixed list of dialog kinds the interceptor hooks.
func DialogTypes() []string {
	return []string{"alert", "confirm", "prompt", "beforeunload"}
}

// DialogMessage is a message understood by the Dialog bridge.
type DialogMessage interface {
	dialogMessage()
}

// DialogConfig is one queue slot of the in-page interceptor.
type DialogConfig struct {
	Pos     int     `json:"pos"`
	Button  Button  `json:"button"`
	Content *string `json:"content,omitempty"`
	Timeout *int    `json:"timeout,omitempty"`
	Active  bool    `json:"active"`
}

// DialogPayload wraps the config for the wire format.
type DialogPayload struct {
	Config DialogConfig `json:"config"`
}

// DialogConfigMessage inserts a config slot into the page-side queue and
// enables interception. With Append false the queue is replaced
// wholesale.
type DialogConfigMessage struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	DialogTypes []string      `json:"dialogTypes"`
	Append      bool          `json:"append"`
	Payload     DialogPayload `json:"payload"`
}

func (DialogConfigMessage) dialogMessage() {}

// NewDialogConfigMessage builds the standard DIALOG_CONFIG message.
func NewDialogConfigMessage(cfg DialogConfig, appendQueue bool) DialogConfigMessage {
	return DialogConfigMessage{
		ID:          uuid.NewString(),
		Type:        "DIALOG_CONFIG",
		DialogTypes: DialogTypes(),
		Append:      appendQueue,
		Payload:     DialogPayload{Config: cfg},
	}
}

// DialogResetMessage clears the queue and disables interception.
type DialogResetMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (DialogResetMessage) dialogMessage() {}

// NewDialogResetMessage builds a DIALOG_RESET message.
func NewDialogResetMessage() DialogResetMessage {
	return DialogResetMessage{ID: uuid.NewString(), Type: "DIALOG_RESET"}
}

// DialogResponse is the response part of a page-out dialog event.
type DialogResponse struct {
	Button Button  `json:"button"`
	Value  *string `json:"value"`
}

// DialogEvent is the page-out record emitted for every intercepted
// dialog. Unhandled is set when the queue was empty at dialog time.
type DialogEvent struct {
	Type         string         `json:"type"`
	Message      string         `json:"message"`
	DefaultValue string         `json:"defaultValue"`
	URL          string         `json:"url"`
	Timestamp    int64          `json:"timestamp"`
	Response     DialogResponse `json:"response"`
	Unhandled    bool           `json:"unhandled,omitempty"`
}

// ChecksumAlgo names a supported download checksum algorithm.
type ChecksumAlgo string

// Supported checksum algorithms and their hex digest lengths.
const (
	ChecksumMD5  ChecksumAlgo = "MD5"
	ChecksumSHA1 ChecksumAlgo = "SHA1"
)

// Checksum is an expected download digest, normalised to lower-case hex.
type Checksum struct {
	Algorithm ChecksumAlgo `json:"algorithm"`
	Digest    string       `json:"digest"`
}

// DownloadMessage is a message understood by the Download bridge.
type DownloadMessage interface {
	downloadMessage()
}

// SetDownloadOptionsMessage configures the next download. Absent Folder
// means the browser default; absent File means the server-suggested name.
type SetDownloadOptionsMessage struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Folder   *string   `json:"folder,omitempty"`
	File     *string   `json:"file,omitempty"`
	Wait     bool      `json:"wait"`
	Checksum *Checksum `json:"checksum,omitempty"`
}

func (SetDownloadOptionsMessage) downloadMessage() {}

// NewSetDownloadOptionsMessage builds a setDownloadOptions message.
func NewSetDownloadOptionsMessage(folder, file *string, wait bool, sum *Checksum) SetDownloadOptionsMessage {
	return SetDownloadOptionsMessage{
		ID:       uuid.NewString(),
		Type:     "setDownloadOptions",
		Folder:   folder,
		File:     file,
		Wait:     wait,
		Checksum: sum,
	}
}

// SaveAsMessage captures the current page to disk.
type SaveAsMessage struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	SaveType string  `json:"saveType"`
	File     string  `json:"file"`
	Folder   *string `json:"folder,omitempty"`
}

func (SaveAsMessage) downloadMessage() {}

// NewSaveAsMessage builds a saveAs message.
func NewSaveAsMessage(saveType, file string, folder *string) SaveAsMessage {
	return SaveAsMessage{
		ID:       uuid.NewString(),
		Type:     "saveAs",
		SaveType: saveType,
		File:     file,
		Folder:   folder,
	}
}

// PrintMessage drives the print service: Type "print" prints the page,
// "setPrintOptions" selects a printer, "printToPDF" renders to a file.
type PrintMessage struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Printer string  `json:"printer,omitempty"`
	File    string  `json:"file,omitempty"`
	Folder  *string `json:"folder,omitempty"`
}

// NewPrintMessage builds a print-service message of the given type.
func NewPrintMessage(typ string) PrintMessage {
	return PrintMessage{ID: uuid.NewString(), Type: typ}
}

// MouseButton is a WINCLICK button choice.
type MouseButton string

// Mouse buttons. CENTER is accepted as an alias for MIDDLE at parse
// time.
const (
	MouseLeft   MouseButton = "LEFT"
	MouseRight  MouseButton = "RIGHT"
	MouseMiddle MouseButton = "MIDDLE"
)

// ParseMouseButton coerces a parameter value into a MouseButton. The
// second return is false for unrecognised values.
func ParseMouseButton(s string) (MouseButton, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LEFT":
		return MouseLeft, true
	case "RIGHT":
		return MouseRight, true
	case "MIDDLE", "CENTER":
		return MouseMiddle, true
	default:
		return "", false
	}
}

// WinClickMessage asks the OS-level service for a synthetic click.
type WinClickMessage struct {
	ID     string      `json:"id"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Button MouseButton `json:"button"`
}

// NewWinClickMessage builds a click message.
func NewWinClickMessage(x, y int, button MouseButton) WinClickMessage {
	return WinClickMessage{ID: uuid.NewString(), X: x, Y: y, Button: button}
}
