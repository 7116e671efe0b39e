// pkg/sshadd/driver.go
//
// Interactive registration driver for ssh-add. The driver watches the child's
// combined output stream for the passphrase prompt, delivers the secret on
// the child's stdin with terminal echo disabled around the write, and waits
// for the success marker. The state machine runs against injected streams so
// it is testable without spawning a real process.

package sshadd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the budget for each wait between state transitions.
	// The timer re-arms on every transition (spawn, first output, prompt
	// match, secret delivery), so the guarantee is "no silent stall longer
	// than this", not a bound on total wall time.
	DefaultTimeout = 60 * time.Second

	// maxSecretSends caps passphrase deliveries per run. A multi-key agent
	// prompts more than once; a wrong passphrase must not loop forever.
	maxSecretSends = 3

	// successMarker is printed by ssh-add once the key is registered.
	successMarker = "Identity added"

	// windowSize bounds the scan buffer. Markers are short; keeping the
	// tail is enough to match across chunk boundaries.
	windowSize = 4096
)

// promptMarkers are the ssh-add outputs that request a passphrase. The
// second appears when the previous attempt was rejected.
var promptMarkers = []string{
	"Enter passphrase",
	"Bad passphrase, try again",
}

// State names the driver's position in the registration exchange, used in
// diagnostics.
type State int

const (
	StateSpawned State = iota
	StateAwaitingPrompt
	StatePassphraseSent
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateAwaitingPrompt:
		return "awaiting prompt"
	case StatePassphraseSent:
		return "passphrase sent"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Child is the spawned registration process as the driver sees it: a combined
// output stream, an input channel for the secret, and echo control over the
// terminal the child reads from.
type Child interface {
	Output() io.Reader
	Input() io.Writer
	SetEcho(on bool) error
}

// TimeoutError reports that no relevant event arrived within the budget.
type TimeoutError struct {
	State  State
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("registration timed out after %s (state: %s)", e.Budget, e.State)
}

// TerminationError reports that the child's output ended before success.
type TerminationError struct {
	State State
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("registration command ended before confirming success (state: %s)", e.State)
}

// Driver runs the prompt/response exchange against one child.
type Driver struct {
	// Timeout is the per-transition wait budget.
	Timeout time.Duration

	// Transcript receives a copy of everything the child prints, for the
	// operator. The secret is written only to the child's input while echo
	// is off, so it never appears here.
	Transcript io.Writer
}

// NewDriver returns a Driver with the default budget, transcribing to stdout.
func NewDriver() *Driver {
	return &Driver{
		Timeout:    DefaultTimeout,
		Transcript: os.Stdout,
	}
}

// Run drives the registration to a terminal state. It returns nil on the
// success marker, a *TimeoutError or *TerminationError on the failure paths,
// and the context error if the run is interrupted. No retry is attempted.
func (d *Driver) Run(ctx context.Context, child Child, secret string) error {
	logger := otelzap.Ctx(ctx)

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	chunks := make(chan []byte)
	go func() {
		defer close(chunks)
		buf := make([]byte, 2048)
		for {
			n, err := child.Output().Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case chunks <- data:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	state := StateSpawned
	logger.Debug("Registration command spawned",
		zap.Duration("timeout", timeout))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var window []byte
	sends := 0

	for {
		select {
		case <-ctx.Done():
			return cerr.Wrap(ctx.Err(), "registration interrupted")

		case data, ok := <-chunks:
			if !ok {
				logger.Warn("Registration command output ended",
					zap.String("state", state.String()))
				return &TerminationError{State: state}
			}
			if d.Transcript != nil {
				_, _ = d.Transcript.Write(data)
			}
			if state == StateSpawned {
				state = StateAwaitingPrompt
				resetTimer(timer, timeout)
				logger.Debug("First output received, scanning for markers")
			}
			window = append(window, data...)

			if bytes.Contains(window, []byte(successMarker)) {
				state = StateSuccess
				logger.Info("Key registered with agent",
					zap.Int("passphrase_prompts", sends))
				return nil
			}

			if end := matchPrompt(window); end >= 0 {
				window = window[end:]
				if sends >= maxSecretSends {
					logger.Warn("Prompt repeated too often, not re-sending passphrase",
						zap.Int("sends", sends))
					continue
				}
				state = StatePassphraseSent
				if err := d.sendSecret(child, secret); err != nil {
					return err
				}
				sends++
				state = StateAwaitingPrompt
				resetTimer(timer, timeout)
				logger.Debug("Passphrase delivered", zap.Int("send", sends))
			}

			if len(window) > windowSize {
				window = window[len(window)-windowSize:]
			}

		case <-timer.C:
			logger.Warn("Registration timed out",
				zap.String("state", state.String()),
				zap.Duration("timeout", timeout))
			return &TimeoutError{State: state, Budget: timeout}
		}
	}
}

// sendSecret writes the secret with echo gated off so the terminal transcript
// shows the prompt/response framing but never the secret itself.
func (d *Driver) sendSecret(child Child, secret string) error {
	if err := child.SetEcho(false); err != nil {
		return cerr.Wrap(err, "failed to disable terminal echo")
	}
	_, werr := io.WriteString(child.Input(), secret+"\n")
	eerr := child.SetEcho(true)

	if werr != nil {
		return cerr.Wrap(werr, "failed to deliver passphrase")
	}
	if eerr != nil {
		return cerr.Wrap(eerr, "failed to restore terminal echo")
	}
	return nil
}

// matchPrompt returns the index just past the earliest prompt marker in the
// window, or -1. Matched content is consumed by the caller so a marker never
// fires twice.
func matchPrompt(window []byte) int {
	end := -1
	for _, marker := range promptMarkers {
		if i := bytes.Index(window, []byte(marker)); i >= 0 {
			if e := i + len(marker); end < 0 || e < end {
				end = e
			}
		}
	}
	return end
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
