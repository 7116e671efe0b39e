// pkg/cli/wrap.go

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/akerr"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap adapts a RuntimeContext handler into a cobra RunE with panic recovery,
// outcome logging, and a signal-aware context. SIGINT/SIGTERM cancel the
// context, which kills any child process started through it; the command then
// returns non-zero without persisting any state.
func Wrap(fn func(rc *RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rc := NewContext(ctx, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)

		if err != nil && ctx.Err() != nil {
			rc.Log.Warn("Interrupted by signal", zap.Error(ctx.Err()))
			err = akerr.NewExpectedError(cerr.Wrap(err, "interrupted"))
		}
		if err != nil && !akerr.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
