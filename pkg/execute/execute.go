// pkg/execute/execute.go
//
// Secure external command execution with structured logging. Shell execution
// is not offered; arguments are always passed as a vector. Stdout is captured
// to a buffer, never mirrored to the terminal, so captured values (session
// tokens, passwords) stay out of the operator transcript.

package execute

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/akerr"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Options configures a single external command execution.
type Options struct {
	Command string
	Args    []string
	Dir     string

	// Env entries are appended to the inherited environment for this child
	// only. Session tokens are threaded through here instead of os.Setenv so
	// unrelated children never see them.
	Env []string

	// Interactive attaches the operator's stdin and stderr to the child so it
	// can prompt on the terminal. Stdout remains captured.
	Interactive bool

	// Sensitive suppresses logging of captured output and summaries.
	Sensitive bool

	Capture bool
	Timeout time.Duration
	Retries int
	Delay   time.Duration
	Logger  *zap.Logger
}

// Run executes a command and returns its captured stdout.
func Run(ctx context.Context, opts Options) (string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.Int("arg_count", len(opts.Args)),
		attribute.Bool("interactive", opts.Interactive),
	)

	log.Debug("Starting execution",
		zap.String("command", opts.Command),
		zap.String("args", joinForLog(opts.Args)))

	var stdout string
	var err error

	attempts := max(1, opts.Retries)
	for i := 1; i <= attempts; i++ {
		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}
		if len(opts.Env) > 0 {
			cmd.Env = append(os.Environ(), opts.Env...)
		}

		var outBuf, errBuf bytes.Buffer
		cmd.Stdout = &outBuf
		if opts.Interactive {
			cmd.Stdin = os.Stdin
			cmd.Stderr = os.Stderr
		} else {
			cmd.Stderr = &errBuf
		}

		err = cmd.Run()
		stdout = outBuf.String()

		if err == nil {
			log.Debug("Execution succeeded", zap.String("command", opts.Command))
			break
		}

		span.RecordError(err)
		fields := []zap.Field{
			zap.Int("attempt", i),
			zap.String("command", opts.Command),
			zap.Error(err),
		}
		if !opts.Sensitive {
			fields = append(fields, zap.String("summary",
				akerr.ExtractSummary(errBuf.String()+"\n"+stdout, 2)))
		}
		log.Warn("Execution failed", fields...)

		if i < attempts {
			select {
			case <-time.After(opts.Delay):
			case <-runCtx.Done():
				return stdout, cerr.Wrap(runCtx.Err(), "execution cancelled")
			}
		}
	}

	if err != nil {
		return stdout, cerr.Wrapf(err, "%s failed after %d attempt(s)", opts.Command, attempts)
	}

	if opts.Capture {
		return stdout, nil
	}
	return "", nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return 30 * time.Second
}

// joinForLog joins arguments for display with basic quoting.
func joinForLog(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t") {
			arg = "'" + arg + "'"
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " ")
}
