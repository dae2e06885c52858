package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"mlbb-coach"}, args...)
}

func TestExecuteUnknownCommand(t *testing.T) {
	withArgs(t, "bogus")
	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestExecuteHelp(t *testing.T) {
	withArgs(t, "help")
	assert.NoError(t, Execute())
}

func TestExecuteNoArgs(t *testing.T) {
	withArgs(t)
	assert.NoError(t, Execute())
}

func TestRunAskRequiresQuestion(t *testing.T) {
	err := runAsk(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

func TestRunIngestValidatesPartition(t *testing.T) {
	err := runIngest([]string{"-partition", "bogus", "file.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid -partition")

	err = runIngest([]string{"-partition", "heroes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}