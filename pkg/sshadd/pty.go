//go:build linux

// pkg/sshadd/pty.go
//
// Pseudo-terminal child for the real ssh-add. ssh-add reads the passphrase
// from its controlling terminal, not stdin, so a pipe is not enough; the
// child gets a pty and the driver talks to the master side. Echo gating is
// done with termios on the master.

package sshadd

import (
	"context"
	"io"
	"os"
	"os/exec"

	cerr "github.com/cockroachdb/errors"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// PtyChild is a registration process attached to a pseudo-terminal.
type PtyChild struct {
	f   *os.File
	cmd *exec.Cmd
}

// StartChild spawns the registration command on a new pty. The command is
// bound to ctx, so cancelling the run (operator interrupt) kills the child.
func StartChild(ctx context.Context, command Command) (*PtyChild, error) {
	cmd := exec.CommandContext(ctx, command.bin(), command.Argv()...)

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to start %s", command.bin())
	}
	return &PtyChild{f: f, cmd: cmd}, nil
}

func (c *PtyChild) Output() io.Reader { return c.f }
func (c *PtyChild) Input() io.Writer  { return c.f }

// SetEcho toggles the ECHO flag on the pty so the secret written to the
// master is not reflected back into the output stream.
func (c *PtyChild) SetEcho(on bool) error {
	fd := int(c.f.Fd())
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return cerr.Wrap(err, "failed to read terminal attributes")
	}
	if on {
		termios.Lflag |= unix.ECHO
	} else {
		termios.Lflag &^= unix.ECHO
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return cerr.Wrap(err, "failed to set terminal attributes")
	}
	return nil
}

// Close releases the pty and reaps the child. Safe after both success and
// failure; a child that is still running is killed first.
func (c *PtyChild) Close() error {
	err := c.f.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	return err
}
