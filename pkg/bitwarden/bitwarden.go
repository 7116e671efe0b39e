// pkg/bitwarden/bitwarden.go
//
// Collaborator layer for the Bitwarden CLI (`bw`). All vault access goes
// through subprocess probes; the session token is threaded explicitly into
// the environment of each bw child and is never exported process-wide.

package bitwarden

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/akerr"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	// DefaultBin is the Bitwarden CLI binary name resolved on PATH.
	DefaultBin = "bw"

	// sessionEnv is how bw receives its session token.
	sessionEnv = "BW_SESSION"

	// unlockTimeout bounds the interactive master-password prompt.
	unlockTimeout = 2 * time.Minute
)

// Runner executes one external command; execute.Run in production.
type Runner func(ctx context.Context, opts execute.Options) (string, error)

// Client wraps the bw CLI with an explicit session.
type Client struct {
	Bin     string
	Session string

	run      Runner
	terminal func() bool
}

// New returns a Client for the bw binary on PATH. An inherited BW_SESSION is
// accepted as the starting session; it is re-validated by the unlock probe.
func New() *Client {
	return &Client{
		Bin:      DefaultBin,
		Session:  os.Getenv(sessionEnv),
		run:      execute.Run,
		terminal: stdinIsTerminal,
	}
}

// NewWithRunner returns a Client with an injected runner, for tests. The
// scripted runner stands in for the terminal too, so the tty guard is
// disarmed; tests for the guard override the terminal probe directly.
func NewWithRunner(bin string, run Runner) *Client {
	return &Client{Bin: bin, run: run, terminal: func() bool { return true }}
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// env returns the per-child environment additions for bw invocations.
func (c *Client) env() []string {
	if c.Session == "" {
		return nil
	}
	return []string{sessionEnv + "=" + c.Session}
}

// LoggedIn probes `bw login --check`; a non-zero exit means not logged in.
func (c *Client) LoggedIn(rc *cli.RuntimeContext) bool {
	_, err := c.run(rc.Ctx, execute.Options{
		Command: c.Bin,
		Args:    []string{"login", "--check"},
		Env:     c.env(),
	})
	return err == nil
}

// Unlocked probes `bw unlock --check` under the current session.
func (c *Client) Unlocked(rc *cli.RuntimeContext) bool {
	_, err := c.run(rc.Ctx, execute.Options{
		Command: c.Bin,
		Args:    []string{"unlock", "--check"},
		Env:     c.env(),
	})
	return err == nil
}

// Unlock runs `bw unlock --raw` with the operator's terminal attached so bw
// can prompt for the master password. The raw session token arrives on the
// captured stdout and replaces the client session.
func (c *Client) Unlock(rc *cli.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	if c.terminal != nil && !c.terminal() {
		return akerr.NewExpectedError(cerr.WithHint(
			cerr.New("vault is locked and stdin is not a terminal"),
			"run 'bw unlock' manually and export BW_SESSION, or rerun from an interactive shell"))
	}
	logger.Info("Vault is locked, prompting for master password")

	token, err := c.run(rc.Ctx, execute.Options{
		Command:     c.Bin,
		Args:        []string{"unlock", "--raw"},
		Env:         c.env(),
		Interactive: true,
		Capture:     true,
		Sensitive:   true,
		Timeout:     unlockTimeout,
	})
	if err != nil {
		return akerr.NewExpectedError(cerr.Wrap(err, "vault unlock failed"))
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return akerr.NewExpectedError(cerr.New("vault unlock produced no session token"))
	}

	c.Session = token
	logger.Info("Vault unlocked", zap.Int("session_token_length", len(token)))
	return nil
}

// EnsureSession verifies the operator is authenticated and the vault is
// unlocked, prompting synchronously for the master password if needed.
// Authentication itself (bw login) is out of scope and delegated to the
// operator.
func (c *Client) EnsureSession(rc *cli.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	if !c.LoggedIn(rc) {
		return akerr.NewExpectedError(cerr.WithHint(
			cerr.New("not logged in to Bitwarden"),
			"run 'bw login' first, then retry"))
	}
	logger.Debug("Bitwarden login verified")

	if c.Unlocked(rc) {
		logger.Debug("Vault already unlocked")
		return nil
	}
	return c.Unlock(rc)
}

// Password fetches the password field of the given vault item. Only the
// outcome is logged; the value itself never reaches a log or the terminal.
func (c *Client) Password(rc *cli.RuntimeContext, item string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	out, err := c.run(rc.Ctx, execute.Options{
		Command:   c.Bin,
		Args:      []string{"get", "password", item},
		Env:       c.env(),
		Capture:   true,
		Sensitive: true,
	})
	if err != nil {
		logger.Error("Secret retrieval failed", zap.String("item", item))
		return "", akerr.NewExpectedError(cerr.Wrapf(
			cerr.WithSecondaryError(akerr.ErrSecretNotFound, err),
			"could not retrieve password for item %q", item))
	}

	secret := strings.TrimSpace(out)
	if secret == "" {
		logger.Error("Secret retrieval returned empty value", zap.String("item", item))
		return "", akerr.NewExpectedError(cerr.Wrapf(
			akerr.ErrSecretNotFound, "item %q has no password", item))
	}

	logger.Info("Secret retrieved", zap.String("item", item))
	return secret, nil
}
