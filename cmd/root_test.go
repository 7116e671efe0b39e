// cmd/root_test.go

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRequiresItemArgument(t *testing.T) {
	assert.Error(t, RootCmd.Args(RootCmd, []string{}))
	assert.NoError(t, RootCmd.Args(RootCmd, []string{"github-deploy-key"}))
	assert.NoError(t, RootCmd.Args(RootCmd, []string{"github-deploy-key", "-k", "~/.ssh/id_ed25519"}))
}

func TestRootFlagDefaults(t *testing.T) {
	timeout := RootCmd.Flags().Lookup("timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "1m0s", timeout.DefValue)

	sshAdd := RootCmd.Flags().Lookup("ssh-add")
	require.NotNil(t, sshAdd)
	assert.Equal(t, "ssh-add", sshAdd.DefValue)

	bw := RootCmd.Flags().Lookup("bw")
	require.NotNil(t, bw)
	assert.Equal(t, "bw", bw.DefValue)
}

func TestRootDoesNotInterspersePassThroughFlags(t *testing.T) {
	// ssh-add flags after the item must survive as positional args.
	cmd := RootCmd
	require.NoError(t, cmd.ParseFlags([]string{"--timeout", "30s", "my-key", "-k", "/path"}))
	assert.Equal(t, []string{"my-key", "-k", "/path"}, cmd.Flags().Args())
}
