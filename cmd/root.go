// cmd/root.go

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/akerr"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/bitwarden"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/expiry"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/sshadd"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	driveTimeout time.Duration
	sshAddPath   string
	bwPath       string
)

// RootCmd is the whole CLI surface: one invocation, one registration.
var RootCmd = &cobra.Command{
	Use:   "agentkey <item> [ssh-add args...]",
	Short: "Register an SSH key with the agent using a Bitwarden-held passphrase",
	Long: `agentkey fetches the passphrase for <item> from the Bitwarden CLI vault and
drives 'ssh-add' through its interactive prompt to register the key with the
running agent. The registration expires at the configured end-of-day cutoff
(` + expiry.EnvEndOfDay + `, default ` + expiry.DefaultCutoff + `; set it empty for no expiry).

Arguments after <item> are passed through to ssh-add unchanged.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          cli.Wrap(runRegister),
}

func init() {
	RootCmd.Flags().DurationVar(&driveTimeout, "timeout", sshadd.DefaultTimeout,
		"budget for each registration state transition")
	RootCmd.Flags().StringVar(&sshAddPath, "ssh-add", sshadd.DefaultBin,
		"registration command to drive")
	RootCmd.Flags().StringVar(&bwPath, "bw", bitwarden.DefaultBin,
		"Bitwarden CLI binary")

	// Flags after <item> belong to ssh-add, not to us.
	RootCmd.Flags().SetInterspersed(false)
}

// Execute runs the CLI. Every failure class exits 1; the structured log
// carries the diagnostic.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func runRegister(rc *cli.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	// ASSESS - collaborators and configuration, before any vault traffic.
	for _, bin := range []string{bwPath, sshAddPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return akerr.NewExpectedError(cerr.Wrapf(err,
				"%s is required but was not found on PATH", bin))
		}
	}

	cutoff, err := expiry.CutoffFromEnv(os.LookupEnv)
	if err != nil {
		return akerr.NewExpectedError(err)
	}

	item, passThrough := args[0], args[1:]
	logger.Info("Starting key registration",
		zap.String("item", item),
		zap.Int("pass_through_args", len(passThrough)))

	vault := bitwarden.New()
	vault.Bin = bwPath
	if err := vault.EnsureSession(rc); err != nil {
		return err
	}

	secret, err := vault.Password(rc, item)
	if err != nil {
		return err
	}

	// INTERVENE - one clock snapshot, then drive the registration.
	policy := expiry.Compute(cutoff, time.Now())
	if policy.Unlimited {
		logger.Info("No cutoff configured, registering without expiry")
	} else {
		logger.Info("Key lifetime computed",
			zap.Int64("seconds", policy.Seconds),
			zap.Stringer("cutoff", cutoff))
	}

	child, err := sshadd.StartChild(rc.Ctx, sshadd.Command{
		Path:     sshAddPath,
		Lifetime: policy,
		Args:     passThrough,
	})
	if err != nil {
		return err
	}
	defer child.Close()

	driver := sshadd.NewDriver()
	driver.Timeout = driveTimeout

	// EVALUATE - the driver reaches a terminal state or reports why not.
	if err := driver.Run(rc.Ctx, child, secret); err != nil {
		return akerr.NewExpectedError(err)
	}

	logger.Info("Key registered", zap.String("item", item))
	return nil
}
