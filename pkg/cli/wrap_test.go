// pkg/cli/wrap_test.go

package cli

import (
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/akerr"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPropagatesError(t *testing.T) {
	base := errors.New("collaborator failed")
	fn := Wrap(func(rc *RuntimeContext, cmd *cobra.Command, args []string) error {
		return base
	})

	err := fn(&cobra.Command{Use: "test"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, base))
}

func TestWrapKeepsUserErrorClassification(t *testing.T) {
	fn := Wrap(func(rc *RuntimeContext, cmd *cobra.Command, args []string) error {
		return akerr.NewExpectedError(errors.New("not logged in"))
	})

	err := fn(&cobra.Command{Use: "test"}, nil)
	require.Error(t, err)
	assert.True(t, akerr.IsExpectedUserError(err))
}

func TestWrapRecoversPanic(t *testing.T) {
	fn := Wrap(func(rc *RuntimeContext, cmd *cobra.Command, args []string) error {
		panic("boom")
	})

	err := fn(&cobra.Command{Use: "test"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestWrapNilError(t *testing.T) {
	fn := Wrap(func(rc *RuntimeContext, cmd *cobra.Command, args []string) error {
		return nil
	})

	assert.NoError(t, fn(&cobra.Command{Use: "test"}, nil))
}

func TestNewContextPopulatesFields(t *testing.T) {
	rc := NewContext(nil, "register")
	require.NotNil(t, rc)
	assert.NotNil(t, rc.Ctx)
	assert.NotNil(t, rc.Log)
	assert.Equal(t, "register", rc.Command)
	assert.False(t, rc.Timestamp.IsZero())
}
