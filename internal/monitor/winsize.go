//go:build !windows

package monitor

import (
	"os"

	"golang.org/x/sys/unix"
)

// TerminalSize reports the local terminal's current size (columns, rows)
// as seen on stdout. Attach does not call it.
func TerminalSize() (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
