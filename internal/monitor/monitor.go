// Package monitor attaches a raw terminal to either a real UART device or
// to QEMU's stdio console, so a developer can watch the payload's S-mode
// output and type into it. It is the interactive counterpart to `cargo
// xtask qemu`: QEMU itself already wires -nographic to pass the console
// through, but Monitor gives xtask a way to attach to a real serial port
// for hardware bring-up instead, and to put the local terminal into raw
// mode either way so line editing doesn't get in the way.
package monitor

import (
	"io"
	"os"

	"github.com/mattn/go-tty"
	"go.bug.st/serial"
)

// Options configures which transport Attach uses.
type Options struct {
	// Port is a serial device path (e.g. "/dev/ttyUSB0"); empty means use
	// the process's own stdin/stdout (QEMU's -nographic console).
	Port     string
	BaudRate int
}

// Attach opens the configured transport and pumps bytes between it and the
// local terminal until ctx-equivalent EOF or an error on either side. It
// returns once either direction hits EOF or the terminal is closed.
func Attach(opts Options) error {
	tin, err := newTTY()
	if err != nil {
		return err
	}
	defer tin.Close()

	var rw io.ReadWriter
	if opts.Port != "" {
		port, err := serial.Open(opts.Port, &serial.Mode{BaudRate: opts.BaudRate})
		if err != nil {
			return err
		}
		defer port.Close()
		rw = port
	} else {
		rw = stdioReadWriter{}
	}

	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(rw, tin.input())
		done <- err
	}()
	go func() {
		_, err := io.Copy(tin.output(), rw)
		done <- err
	}()
	return <-done
}

type stdioReadWriter struct{}

func (stdioReadWriter) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// rawTTY wraps go-tty's raw-mode terminal handle.
type rawTTY struct {
	t *tty.TTY
}

func newTTY() (*rawTTY, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	return &rawTTY{t: t}, nil
}

func (r *rawTTY) Close() error { return r.t.Close() }

func (r *rawTTY) input() io.Reader  { return r.t.Input() }
func (r *rawTTY) output() io.Writer { return r.t.Output() }
