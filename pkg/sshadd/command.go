// pkg/sshadd/command.go

package sshadd

import (
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/expiry"
)

// DefaultBin is the registration binary resolved on PATH.
const DefaultBin = "ssh-add"

// Command describes one registration invocation. The lifetime flag is
// prepended before the pass-through arguments and omitted entirely for an
// unlimited policy. The secret is never part of the argument vector.
type Command struct {
	Path     string
	Lifetime expiry.Policy
	Args     []string
}

// Argv returns the full argument vector, without the binary itself.
func (c Command) Argv() []string {
	argv := c.Lifetime.Flag()
	return append(argv, c.Args...)
}

func (c Command) bin() string {
	if c.Path != "" {
		return c.Path
	}
	return DefaultBin
}
