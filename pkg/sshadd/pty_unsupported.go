//go:build !linux

// pkg/sshadd/pty_unsupported.go
//
// Echo gating over the pty uses linux termios ioctls, so spawning a real
// registration child is linux-only. The stub keeps the package compiling on
// other platforms; the driver itself is platform-independent.

package sshadd

import (
	"context"
	"io"
	"runtime"

	cerr "github.com/cockroachdb/errors"
)

// PtyChild is a registration process attached to a pseudo-terminal. It is
// never constructed on this platform.
type PtyChild struct{}

// StartChild reports that pseudo-terminal registration is unavailable here.
func StartChild(_ context.Context, command Command) (*PtyChild, error) {
	return nil, cerr.Newf("cannot start %s: pseudo-terminal registration is not supported on %s",
		command.bin(), runtime.GOOS)
}

func (c *PtyChild) Output() io.Reader { return nil }
func (c *PtyChild) Input() io.Writer  { return nil }

func (c *PtyChild) SetEcho(bool) error { return nil }

func (c *PtyChild) Close() error { return nil }
