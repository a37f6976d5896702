package common

import (
	"errors"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnsupported = errors.New("clipboard is not supported on this system")

type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the desktop clipboard (xclip/xsel/wl-copy on
// Linux, pbcopy on macOS, the Win32 API on Windows).
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}
